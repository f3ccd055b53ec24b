package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductApplyRating(t *testing.T) {
	p := &Product{}

	require.NoError(t, p.ApplyRating(4))
	assert.InDelta(t, 4.0, p.Rating, 1e-9)
	assert.Equal(t, 1, p.ReviewCount)

	require.NoError(t, p.ApplyRating(5))
	assert.InDelta(t, 4.5, p.Rating, 1e-9)
	assert.Equal(t, 2, p.ReviewCount)
}

func TestProductApplyRating_OutOfRange(t *testing.T) {
	p := &Product{Rating: 3, ReviewCount: 1}

	assert.ErrorIs(t, p.ApplyRating(0), ErrInvalidArgument)
	assert.ErrorIs(t, p.ApplyRating(6), ErrInvalidArgument)
	assert.Equal(t, 1, p.ReviewCount)
}

func TestProductValidate(t *testing.T) {
	valid := func() *Product { return testProduct("p1", "2.50", "10.5") }

	assert.NoError(t, valid().Validate())

	p := valid()
	p.Name = "  "
	assert.ErrorIs(t, p.Validate(), ErrInvalidArgument)

	p = valid()
	p.Price = dec("0")
	assert.ErrorIs(t, p.Validate(), ErrInvalidArgument)

	p = valid()
	p.Stock = dec("-1")
	assert.ErrorIs(t, p.Validate(), ErrInvalidArgument)

	p = valid()
	p.Stock = dec("1.05")
	assert.ErrorIs(t, p.Validate(), ErrInvalidArgument)
}

func TestProductMatchesName(t *testing.T) {
	p := &Product{Name: "Organic Tomatoes"}

	assert.True(t, p.MatchesName(""))
	assert.True(t, p.MatchesName("tomato"))
	assert.True(t, p.MatchesName("ORGANIC"))
	assert.False(t, p.MatchesName("potato"))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Farmer ")
	require.NoError(t, err)
	assert.Equal(t, RoleFarmer, r)
	assert.True(t, r.CanSell())
	assert.False(t, r.CanBuy())

	_, err = ParseRole("guest")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestUserShippingAddress(t *testing.T) {
	u := &User{Address: "12 Mill Lane", City: " Pune ", Zip: ""}
	assert.Equal(t, "12 Mill Lane, Pune", u.ShippingAddress())
}
