package calls

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xyz-asif/callboard/internal/pkg/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// memCalls is an in-memory CallStore
type memCalls struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]Call
	err  error
}

func newMemCalls() *memCalls {
	return &memCalls{docs: map[primitive.ObjectID]Call{}}
}

func (m *memCalls) Insert(_ context.Context, call *Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.docs[call.ID] = *call
	return nil
}

func (m *memCalls) FindByID(_ context.Context, id primitive.ObjectID) (*Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.docs[id]
	if !ok {
		return nil, ErrCallNotFound
	}
	return &c, nil
}

func (m *memCalls) Replace(_ context.Context, call *Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.docs[call.ID]; !ok {
		return ErrCallNotFound
	}
	m.docs[call.ID] = *call
	return nil
}

func (m *memCalls) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrCallNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *memCalls) FindByCategory(_ context.Context, category Category) ([]Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.docs {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCalls) SearchByTitle(_ context.Context, query string) ([]Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.docs {
		if strings.Contains(strings.ToLower(c.Title), strings.ToLower(query)) {
			out = append(out, c)
		}
	}
	return out, nil
}

type memUser struct {
	calls      []Call
	favourites []Call
}

// memUsers is an in-memory UserStore
type memUsers struct {
	mu      sync.Mutex
	users   map[primitive.ObjectID]*memUser
	failOn  string
	refetch int
}

func newMemUsers(ids ...primitive.ObjectID) *memUsers {
	m := &memUsers{users: map[primitive.ObjectID]*memUser{}}
	for _, id := range ids {
		m.users[id] = &memUser{}
	}
	return m
}

func (m *memUsers) user(id primitive.ObjectID) (*memUser, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s missing", id.Hex())
	}
	return u, nil
}

func (m *memUsers) fail(op string) error {
	if m.failOn == op {
		return errors.New(op + " failed")
	}
	return nil
}

func (m *memUsers) AppendCall(_ context.Context, ownerID primitive.ObjectID, call Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AppendCall"); err != nil {
		return err
	}
	u, err := m.user(ownerID)
	if err != nil {
		return err
	}
	u.calls = append(u.calls, call)
	return nil
}

func (m *memUsers) SetCallSnapshot(_ context.Context, ownerID primitive.ObjectID, call Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SetCallSnapshot"); err != nil {
		return err
	}
	u, err := m.user(ownerID)
	if err != nil {
		return err
	}
	for i := range u.calls {
		if u.calls[i].ID == call.ID {
			u.calls[i] = call
			return nil
		}
	}
	return ErrSnapshotNotFound
}

func (m *memUsers) RemoveCall(_ context.Context, ownerID, callID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("RemoveCall"); err != nil {
		return err
	}
	u, err := m.user(ownerID)
	if err != nil {
		return err
	}
	u.calls = without(u.calls, callID)
	return nil
}

func (m *memUsers) Calls(_ context.Context, userID primitive.ObjectID) ([]Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.user(userID)
	if err != nil {
		return nil, err
	}
	return append([]Call(nil), u.calls...), nil
}

func (m *memUsers) Favourites(_ context.Context, userID primitive.ObjectID) ([]Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.user(userID)
	if err != nil {
		return nil, err
	}
	return append([]Call(nil), u.favourites...), nil
}

func (m *memUsers) AddFavourite(_ context.Context, userID primitive.ObjectID, call Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.user(userID)
	if err != nil {
		return err
	}
	u.favourites = append(u.favourites, call)
	return nil
}

func (m *memUsers) RemoveFavourite(_ context.Context, userID, callID primitive.ObjectID) ([]Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.user(userID)
	if err != nil {
		return nil, err
	}
	u.favourites = without(u.favourites, callID)
	m.refetch++
	return append([]Call(nil), u.favourites...), nil
}

func (m *memUsers) HasFavourite(_ context.Context, userID, callID primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.user(userID)
	if err != nil {
		return false, err
	}
	return containsCall(u.favourites, callID), nil
}

func without(list []Call, id primitive.ObjectID) []Call {
	out := list[:0]
	for _, c := range list {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// fakeUploader hands out predictable URLs
type fakeUploader struct {
	mu    sync.Mutex
	count int
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, img storage.Image) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.count++
	return fmt.Sprintf("https://img.test/%d-%s", f.count, img.Filename), nil
}

// fakeTx records that a transaction was opened and runs fn inline
type fakeTx struct {
	opened int
	before func()
}

func (f *fakeTx) WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error {
	f.opened++
	if f.before != nil {
		f.before()
	}
	return fn(mongo.NewSessionContext(ctx, nil))
}

// recordingPublisher keeps every published subject
type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *recordingPublisher) Close() {}

// mapCache is a Cache backed by a map of pre-encoded values
type mapCache struct {
	mu      sync.Mutex
	values  map[string]Call
	deleted []string
}

func newMapCache() *mapCache {
	return &mapCache{values: map[string]Call{}}
}

func (c *mapCache) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return false, nil
	}
	*dst.(*Call) = v
	return true, nil
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = *value.(*Call)
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

func images(n int) []storage.Image {
	out := make([]storage.Image, n)
	for i := range out {
		out[i] = storage.Image{Reader: strings.NewReader("x"), Filename: fmt.Sprintf("img%d.png", i), Size: 1}
	}
	return out
}

func ptr[T any](v T) *T { return &v }
