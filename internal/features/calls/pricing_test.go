package calls

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/xyz-asif/callboard/pkg/errors"
)

func TestRepriceDecreasePutsOnSale(t *testing.T) {
	next, err := Reprice(SaleState{Price: 4}, 1)
	require.NoError(t, err)

	assert.Equal(t, 1.0, next.Price)
	require.NotNil(t, next.OldPrice)
	assert.Equal(t, 4.0, *next.OldPrice)
	assert.True(t, next.IsOnSale)
	require.NotNil(t, next.DiscountPercents)
	assert.Equal(t, 75.0, *next.DiscountPercents)
}

func TestRepriceDecreaseFormula(t *testing.T) {
	cases := []struct{ from, to float64 }{
		{100, 90}, {3, 2}, {10, 0}, {7.5, 2.5}, {1000, 999.99},
	}
	for _, tc := range cases {
		next, err := Reprice(SaleState{Price: tc.from}, tc.to)
		require.NoError(t, err)
		assert.True(t, next.IsOnSale)
		assert.Equal(t, 100-tc.to*100/tc.from, *next.DiscountPercents, "%v -> %v", tc.from, tc.to)
	}
}

func TestRepriceIncreaseClearsSale(t *testing.T) {
	fifty := 50.0
	old := 8.0
	next, err := Reprice(SaleState{Price: 4, OldPrice: &old, IsOnSale: true, DiscountPercents: &fifty}, 10)
	require.NoError(t, err)

	assert.False(t, next.IsOnSale)
	assert.Equal(t, 0.0, *next.DiscountPercents)
	assert.Equal(t, 4.0, *next.OldPrice)
	assert.Equal(t, 10.0, next.Price)
	assert.Equal(t, 50.0, fifty, "input state is not mutated")
}

func TestRepriceSamePrice(t *testing.T) {
	for _, p := range []float64{0, 2, 99.5} {
		_, err := Reprice(SaleState{Price: p}, p)
		require.ErrorIs(t, err, ErrSamePrice)

		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, appErr.Status)
		assert.Equal(t, "Can't set the same price", appErr.Message)
	}
}

func TestRepriceScenario(t *testing.T) {
	state := SaleState{Price: 2}

	state, err := Reprice(state, 4)
	require.NoError(t, err)
	assert.Equal(t, 2.0, *state.OldPrice)
	assert.Equal(t, 0.0, *state.DiscountPercents)
	assert.False(t, state.IsOnSale)

	state, err = Reprice(state, 1)
	require.NoError(t, err)
	assert.Equal(t, 4.0, *state.OldPrice)
	assert.Equal(t, 75.0, *state.DiscountPercents)
	assert.True(t, state.IsOnSale)
}

func TestCheckCategoryPrice(t *testing.T) {
	for _, c := range Categories {
		assert.NoError(t, CheckCategoryPrice(c, 0), c)

		err := CheckCategoryPrice(c, 12)
		if !c.Priceless() {
			assert.NoError(t, err, c)
			continue
		}
		require.Error(t, err, c)
		appErr, _ := apperrors.As(err)
		assert.Equal(t, "Can't set price for "+string(c)+" category. Must be 0", appErr.Message)
		assert.Equal(t, http.StatusBadRequest, appErr.Status)
	}
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory("businessAndServices")
	assert.True(t, ok)
	assert.Equal(t, CategoryBusinessAndServices, c)

	c, ok = ParseCategory("recreation and sport")
	assert.True(t, ok)
	assert.Equal(t, CategoryRecreationAndSport, c)

	_, ok = ParseCategory("boats")
	assert.False(t, ok)
}
