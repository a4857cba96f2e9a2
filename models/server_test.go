package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func testServer() *Server {
	return &Server{
		ID:          "S1",
		Owner:       "U1",
		Name:        "Guild",
		Description: ptr("a place"),
		Channels:    []string{"C1", "C2"},
		Icon:        &Attachment{ID: "A1", Tag: "icons"},
		Roles: map[string]Role{
			"R1": {ID: "R1", Name: "mod", Rank: 1},
		},
		DefaultPermissions: 7,
	}
}

func TestPartialServerApply(t *testing.T) {
	tests := []struct {
		name    string
		partial func() PartialServer
		check   func(t *testing.T, before, after *Server)
	}{
		{
			name:    "set name keeps the rest",
			partial: func() PartialServer { return PartialServer{Name: Set("Guild2")} },
			check: func(t *testing.T, before, after *Server) {
				expected := before.Clone()
				expected.Name = "Guild2"
				assert.Equal(t, expected, after)
			},
		},
		{
			name: "clear description and icon",
			partial: func() PartialServer {
				var p PartialServer
				assert.Empty(t, p.ApplyClear([]string{"Description", "Icon"}))
				return p
			},
			check: func(t *testing.T, before, after *Server) {
				assert.Nil(t, after.Description)
				assert.Nil(t, after.Icon)
				assert.Equal(t, before.Name, after.Name)
				assert.Equal(t, before.Channels, after.Channels)
			},
		},
		{
			name: "set and clear together",
			partial: func() PartialServer {
				p := PartialServer{
					Name:               Set("Renamed"),
					DefaultPermissions: Set(uint64(1)),
					Banner:             Set(Attachment{ID: "B1", Tag: "banners"}),
				}
				p.ApplyClear([]string{"Description"})
				return p
			},
			check: func(t *testing.T, before, after *Server) {
				assert.Equal(t, "Renamed", after.Name)
				assert.Equal(t, uint64(1), after.DefaultPermissions)
				require.NotNil(t, after.Banner)
				assert.Equal(t, "B1", after.Banner.ID)
				assert.Nil(t, after.Description)
				assert.Equal(t, before.Icon, after.Icon)
				assert.Equal(t, before.Owner, after.Owner)
			},
		},
		{
			name:    "empty partial is a no-op",
			partial: func() PartialServer { return PartialServer{} },
			check: func(t *testing.T, before, after *Server) {
				assert.Equal(t, before, after)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testServer()
			partial := tt.partial()

			once := before.Clone()
			partial.Apply(once)
			tt.check(t, before, once)

			twice := once.Clone()
			partial.Apply(twice)
			assert.Equal(t, once, twice, "applying twice must be idempotent")

			assert.Equal(t, testServer(), before, "the original must not change")
		})
	}
}

func TestPartialServerFromWire(t *testing.T) {
	var partial PartialServer
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Guild2","description":null}`), &partial))
	partial.ApplyClear([]string{"Banner"})

	server := testServer()
	server.Banner = &Attachment{ID: "B1"}
	partial.Apply(server)

	assert.Equal(t, "Guild2", server.Name)
	require.NotNil(t, server.Description)
	assert.Equal(t, "a place", *server.Description)
	assert.Nil(t, server.Banner)
}

func TestServerUnmarshalFillsRoleIDs(t *testing.T) {
	var server Server
	data := `{"_id":"S1","owner":"U1","name":"Guild","channels":["C1"],"default_permissions":0,
		"roles":{"R1":{"name":"mod","permissions":{"a":1,"d":0},"rank":2}}}`
	require.NoError(t, json.Unmarshal([]byte(data), &server))

	role, ok := server.Role("R1")
	require.True(t, ok)
	assert.Equal(t, "R1", role.ID)
	assert.Equal(t, int64(2), role.Rank)
	assert.Equal(t, uint64(1), role.Permissions.Allow)
}

func TestServerCloneIsIndependent(t *testing.T) {
	server := testServer()
	clone := server.Clone()

	clone.Channels[0] = "X"
	clone.Roles["R2"] = Role{ID: "R2"}

	assert.Equal(t, "C1", server.Channels[0])
	assert.NotContains(t, server.Roles, "R2")
}

func TestSortRoles(t *testing.T) {
	roles := []Role{
		{ID: "R3", Rank: 5},
		{ID: "R2", Rank: 1},
		{ID: "R1", Rank: 1},
		{ID: "R4", Rank: 9},
	}
	SortRoles(roles)

	var order []string
	for _, role := range roles {
		order = append(order, role.ID)
	}
	assert.Equal(t, []string{"R1", "R2", "R3", "R4"}, order)
}

func TestOrderedRoles(t *testing.T) {
	server := &Server{Roles: map[string]Role{
		"b": {ID: "b", Rank: 1},
		"a": {ID: "a", Rank: 1},
		"c": {ID: "c", Rank: 0},
	}}

	roles := server.OrderedRoles()
	require.Len(t, roles, 3)
	assert.Equal(t, "c", roles[0].ID)
	assert.Equal(t, "a", roles[1].ID)
	assert.Equal(t, "b", roles[2].ID)
}

func TestPartialRoleApply(t *testing.T) {
	role := Role{ID: "R1", Name: "mod", Colour: ptr("red"), Rank: 3}

	var partial PartialRole
	require.NoError(t, json.Unmarshal([]byte(`{"name":"admin","rank":0}`), &partial))
	partial.ApplyClear([]string{"Colour"})
	partial.Apply(&role)

	assert.Equal(t, Role{ID: "R1", Name: "admin", Rank: 0}, role)
}
