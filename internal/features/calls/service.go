package calls

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/xyz-asif/callboard/internal/pkg/cache"
	"github.com/xyz-asif/callboard/internal/pkg/events"
	"github.com/xyz-asif/callboard/internal/pkg/metrics"
	"github.com/xyz-asif/callboard/internal/pkg/storage"
	apperrors "github.com/xyz-asif/callboard/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// CallStore is the canonical calls collection
type CallStore interface {
	Insert(ctx context.Context, call *Call) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Call, error)
	Replace(ctx context.Context, call *Call) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	FindByCategory(ctx context.Context, category Category) ([]Call, error)
	SearchByTitle(ctx context.Context, query string) ([]Call, error)
}

// UserStore holds the call snapshots embedded in user documents
type UserStore interface {
	AppendCall(ctx context.Context, ownerID primitive.ObjectID, call Call) error
	SetCallSnapshot(ctx context.Context, ownerID primitive.ObjectID, call Call) error
	RemoveCall(ctx context.Context, ownerID, callID primitive.ObjectID) error
	Calls(ctx context.Context, userID primitive.ObjectID) ([]Call, error)
	Favourites(ctx context.Context, userID primitive.ObjectID) ([]Call, error)
	AddFavourite(ctx context.Context, userID primitive.ObjectID, call Call) error
	RemoveFavourite(ctx context.Context, userID, callID primitive.ObjectID) ([]Call, error)
	HasFavourite(ctx context.Context, userID, callID primitive.ObjectID) (bool, error)
}

type Transactor interface {
	WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error
}

var (
	// ErrCallNotFound is returned by CallStore implementations for a missing id
	ErrCallNotFound = errors.New("call not found")
	// ErrSnapshotNotFound is returned by UserStore.SetCallSnapshot when the
	// owner holds no snapshot of the call
	ErrSnapshotNotFound = errors.New("call snapshot not found")
)

var (
	errCallNotFound     = apperrors.New(http.StatusNotFound, "CALL_NOT_FOUND", "Call not found")
	errNoCallsFound     = apperrors.New(http.StatusNotFound, "NO_CALLS_FOUND", "No calls found")
	errNoImages         = apperrors.BadRequest("NO_IMAGES", "No images provided")
	errTooManyImages    = apperrors.BadRequest("TOO_MANY_IMAGES", "Only 5 and less images are allowed")
	errAlreadyFavourite = apperrors.Forbidden("ALREADY_FAVOURITE", "Already in favourites")
	errNotFavourite     = apperrors.Forbidden("NOT_FAVOURITE", "Not in favourites")
)

// Service applies call mutations to the canonical store and keeps the
// owner's embedded snapshots in step with it.
type Service struct {
	calls        CallStore
	users        UserStore
	uploader     storage.Uploader
	cache        cache.Cache
	events       events.Publisher
	metrics      *metrics.Metrics
	tx           Transactor
	transactions bool
	logger       *zap.Logger
}

type Option func(*Service)

func WithCache(c cache.Cache) Option { return func(s *Service) { s.cache = c } }

func WithEvents(p events.Publisher) Option { return func(s *Service) { s.events = p } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

// WithTransactions runs each canonical/snapshot write pair in one transaction
func WithTransactions(tx Transactor) Option {
	return func(s *Service) {
		s.tx = tx
		s.transactions = tx != nil
	}
}

func NewService(calls CallStore, users UserStore, uploader storage.Uploader, opts ...Option) *Service {
	s := &Service{
		calls:    calls,
		users:    users,
		uploader: uploader,
		cache:    cache.Noop{},
		events:   events.Noop{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new call and appends its snapshot to the owner
func (s *Service) Create(ctx context.Context, ownerID primitive.ObjectID, req CreateCallRequest, images []storage.Image) (*Call, error) {
	if len(images) > MaxImages {
		return nil, errTooManyImages
	}
	if len(images) == 0 {
		return nil, errNoImages
	}

	price := 0.0
	if req.Price != nil {
		price = *req.Price
	}
	if err := CheckCategoryPrice(req.Category, price); err != nil {
		return nil, err
	}

	urls, err := s.upload(ctx, images)
	if err != nil {
		return nil, err
	}

	call := &Call{
		ID:          primitive.NewObjectID(),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       price,
		IsOnSale:    false,
		ImageURLs:   urls,
		Phone:       req.Phone,
		UserID:      ownerID,
	}

	err = s.writePair(ctx, "create", call.ID,
		func(ctx context.Context) error { return s.calls.Insert(ctx, call) },
		func(ctx context.Context) error { return s.users.AppendCall(ctx, ownerID, *call) },
	)
	if err != nil {
		return nil, err
	}

	s.committed(ctx, events.SubjectCallCreated, "create", call)
	return call, nil
}

// Edit merges req into the owner's call. A present price always goes
// through Reprice, so an equal price is rejected even when it is 0.
func (s *Service) Edit(ctx context.Context, ownerID, callID primitive.ObjectID, req EditCallRequest, images []storage.Image) (*Call, error) {
	current, err := s.load(ctx, callID)
	if err != nil {
		return nil, err
	}
	if current.UserID != ownerID {
		return nil, errCallNotFound
	}
	owned, err := s.users.Calls(ctx, ownerID)
	if err != nil {
		return nil, internal("Failed to load calls", err)
	}
	if !containsCall(owned, callID) {
		return nil, errCallNotFound
	}

	if req.Price != nil {
		if err := CheckCategoryPrice(current.Category, *req.Price); err != nil {
			return nil, err
		}
	}
	if req.Category != nil {
		price := current.Price
		if req.Price != nil {
			price = *req.Price
		}
		if err := CheckCategoryPrice(*req.Category, price); err != nil {
			return nil, err
		}
	}
	if len(images) > MaxImages {
		return nil, errTooManyImages
	}

	updated := *current
	if req.Price != nil {
		sale, err := Reprice(current.SaleState(), *req.Price)
		if err != nil {
			return nil, err
		}
		updated.applySale(sale)
	}
	if req.Title != nil {
		updated.Title = *req.Title
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.Category != nil {
		updated.Category = *req.Category
	}
	if req.Phone != nil {
		updated.Phone = *req.Phone
	}
	if len(images) > 0 {
		urls, err := s.upload(ctx, images)
		if err != nil {
			return nil, err
		}
		updated.ImageURLs = urls
	}

	err = s.writePair(ctx, "edit", updated.ID,
		func(ctx context.Context) error { return s.calls.Replace(ctx, &updated) },
		func(ctx context.Context) error { return s.users.SetCallSnapshot(ctx, ownerID, updated) },
	)
	if err != nil {
		return nil, err
	}

	s.committed(ctx, events.SubjectCallUpdated, "edit", &updated)
	return &updated, nil
}

// Delete removes the call and the owner's snapshots of it. Other users'
// favourites keep their copy.
func (s *Service) Delete(ctx context.Context, ownerID, callID primitive.ObjectID) error {
	call, err := s.load(ctx, callID)
	if err != nil {
		return err
	}
	if call.UserID != ownerID {
		return errCallNotFound
	}

	err = s.writePair(ctx, "delete", callID,
		func(ctx context.Context) error { return s.calls.Delete(ctx, callID) },
		func(ctx context.Context) error {
			if err := s.users.RemoveCall(ctx, ownerID, callID); err != nil {
				return err
			}
			favourited, err := s.users.HasFavourite(ctx, ownerID, callID)
			if err != nil {
				return err
			}
			if favourited {
				_, err := s.users.RemoveFavourite(ctx, ownerID, callID)
				return err
			}
			return nil
		},
	)
	if err != nil {
		return err
	}

	s.committed(ctx, events.SubjectCallDeleted, "delete", call)
	return nil
}

// AddFavourite returns the favourites as held before the write plus the new
// entry; the user document is not read back.
func (s *Service) AddFavourite(ctx context.Context, userID, callID primitive.ObjectID) ([]Call, error) {
	call, err := s.load(ctx, callID)
	if err != nil {
		return nil, err
	}

	favourites, err := s.users.Favourites(ctx, userID)
	if err != nil {
		return nil, internal("Failed to load favourites", err)
	}
	if containsCall(favourites, callID) {
		return nil, errAlreadyFavourite
	}

	if err := s.users.AddFavourite(ctx, userID, *call); err != nil {
		return nil, internal("Failed to add favourite", err)
	}

	return append(favourites, *call), nil
}

// RemoveFavourite returns the favourites re-read after the pull
func (s *Service) RemoveFavourite(ctx context.Context, userID, callID primitive.ObjectID) ([]Call, error) {
	if _, err := s.load(ctx, callID); err != nil {
		return nil, err
	}

	favourites, err := s.users.Favourites(ctx, userID)
	if err != nil {
		return nil, internal("Failed to load favourites", err)
	}
	if !containsCall(favourites, callID) {
		return nil, errNotFavourite
	}

	updated, err := s.users.RemoveFavourite(ctx, userID, callID)
	if err != nil {
		return nil, internal("Failed to remove favourite", err)
	}
	if updated == nil {
		updated = []Call{}
	}
	return updated, nil
}

// Get returns the canonical call, through the cache when one is configured
func (s *Service) Get(ctx context.Context, callID primitive.ObjectID) (*Call, error) {
	key := cacheKey(callID)

	var cached Call
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("call cache read failed", zap.String("callId", callID.Hex()), zap.Error(err))
	}
	if found {
		return &cached, nil
	}

	call, err := s.load(ctx, callID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, call); err != nil {
		s.logger.Warn("call cache write failed", zap.String("callId", callID.Hex()), zap.Error(err))
	}
	return call, nil
}

func (s *Service) OwnCalls(ctx context.Context, userID primitive.ObjectID) ([]Call, error) {
	list, err := s.users.Calls(ctx, userID)
	if err != nil {
		return nil, internal("Failed to load calls", err)
	}
	return nonNil(list), nil
}

func (s *Service) Favourites(ctx context.Context, userID primitive.ObjectID) ([]Call, error) {
	list, err := s.users.Favourites(ctx, userID)
	if err != nil {
		return nil, internal("Failed to load favourites", err)
	}
	return nonNil(list), nil
}

// Search matches titles case-insensitively
func (s *Service) Search(ctx context.Context, query string) ([]Call, error) {
	list, err := s.calls.SearchByTitle(ctx, query)
	if err != nil {
		return nil, internal("Failed to search calls", err)
	}
	return nonNil(list), nil
}

// ByCategory lists one category; an unknown or empty category is a 404
func (s *Service) ByCategory(ctx context.Context, raw string) ([]Call, error) {
	category, ok := ParseCategory(raw)
	if !ok {
		return nil, errNoCallsFound
	}

	list, err := s.calls.FindByCategory(ctx, category)
	if err != nil {
		return nil, internal("Failed to load calls", err)
	}
	if len(list) == 0 {
		return nil, errNoCallsFound
	}
	return list, nil
}

func (s *Service) load(ctx context.Context, callID primitive.ObjectID) (*Call, error) {
	call, err := s.calls.FindByID(ctx, callID)
	if errors.Is(err, ErrCallNotFound) {
		return nil, errCallNotFound
	}
	if err != nil {
		return nil, internal("Failed to load call", err)
	}
	return call, nil
}

func (s *Service) upload(ctx context.Context, images []storage.Image) ([]string, error) {
	urls := make([]string, 0, len(images))
	for _, img := range images {
		url, err := s.uploader.Upload(ctx, img)
		if err != nil {
			return nil, internal("Failed to upload image", err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// writePair runs the canonical write and then the snapshot write. Without
// transactions a failed snapshot write leaves the canonical write in place.
// The cached copy of callID is dropped whenever the canonical write went
// through, whatever happens to the snapshot write.
func (s *Service) writePair(ctx context.Context, op string, callID primitive.ObjectID, canonical, propagate func(ctx context.Context) error) error {
	wrote := false
	defer func() {
		if wrote {
			s.invalidate(ctx, callID)
		}
	}()

	run := func(ctx context.Context) error {
		if err := canonical(ctx); err != nil {
			return internal("Failed to save call", err)
		}
		wrote = true
		if err := propagate(ctx); err != nil {
			s.logger.Error("call snapshot propagation failed",
				zap.String("operation", op),
				zap.Bool("transactional", s.transactions),
				zap.Error(err),
			)
			if s.metrics != nil {
				s.metrics.PropagationFailures.WithLabelValues(op).Inc()
			}
			if errors.Is(err, ErrSnapshotNotFound) {
				return errCallNotFound
			}
			return internal("Failed to update user calls", err)
		}
		return nil
	}

	if !s.transactions {
		return run(ctx)
	}

	err := s.tx.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return run(sessCtx)
	})
	if err != nil {
		return internal("Transaction failed", err)
	}
	return nil
}

func (s *Service) committed(ctx context.Context, subject, kind string, call *Call) {
	if s.metrics != nil {
		s.metrics.CallMutations.WithLabelValues(kind).Inc()
	}

	evt := events.CallEvent{
		CallID:     call.ID.Hex(),
		UserID:     call.UserID.Hex(),
		OccurredAt: time.Now().UTC(),
	}
	if subject != events.SubjectCallDeleted {
		evt.Call = call
	}
	if err := s.events.Publish(ctx, subject, evt); err != nil {
		s.logger.Warn("call event publish failed", zap.String("subject", subject), zap.Error(err))
	}
}

func (s *Service) invalidate(ctx context.Context, callID primitive.ObjectID) {
	if err := s.cache.Delete(ctx, cacheKey(callID)); err != nil {
		s.logger.Warn("call cache invalidation failed", zap.String("callId", callID.Hex()), zap.Error(err))
	}
}

// internal keeps application errors as they are and hides everything else behind a 500
func internal(message string, err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.Internal(message, err)
}

func containsCall(list []Call, id primitive.ObjectID) bool {
	for i := range list {
		if list[i].ID == id {
			return true
		}
	}
	return false
}

func nonNil(list []Call) []Call {
	if list == nil {
		return []Call{}
	}
	return list
}

func cacheKey(id primitive.ObjectID) string {
	return "call:" + id.Hex()
}
