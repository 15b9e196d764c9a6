package relay

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryBindReplaceUnbind(t *testing.T) {
	reg := NewRegistry()
	first := newClient(nil, nil, 5, 1)
	second := newClient(nil, nil, 5, 1)

	assert.Nil(t, reg.Bind(first))
	assert.Same(t, first, reg.Bind(second))
	assert.Nil(t, reg.Bind(second))

	// A late unbind of the replaced client leaves the successor bound.
	assert.False(t, reg.Unbind(first))
	got, ok := reg.Lookup(5)
	assert.True(t, ok)
	assert.Same(t, second, got)

	assert.True(t, reg.Unbind(second))
	_, ok = reg.Lookup(5)
	assert.False(t, ok)
}

func TestRegistryOnlineIsSorted(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []int64{9, 2, 5} {
		reg.Bind(newClient(nil, nil, id, 1))
	}
	assert.Equal(t, []int64{2, 5, 9}, reg.Online())
	assert.Equal(t, 3, reg.Len())
	assert.Len(t, reg.Clients(), 3)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example/"})

	req := httptest.NewRequest("GET", "/ws", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://app.example")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
}

func TestRequestToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws?token=abc", nil)
	assert.Equal(t, "abc", requestToken(req))

	req.Header.Set("Authorization", "Bearer xyz")
	assert.Equal(t, "xyz", requestToken(req))
}
