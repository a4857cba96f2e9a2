package stoat

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stoat-client/events"
	"stoat-client/internal/platformtest"
	"stoat-client/models"
	"stoat-client/rest"
)

func serveServer(p *platformtest.Platform, name string) {
	p.Handle(http.MethodGet, "/servers/{serverID}", func(w http.ResponseWriter, r *http.Request) {
		platformtest.WriteJSON(w, http.StatusOK, map[string]any{
			"_id":                 chi.URLParam(r, "serverID"),
			"owner":               "U1",
			"name":                name,
			"channels":            []string{},
			"roles":               map[string]any{"R0": map[string]any{"name": "Admin", "permissions": map[string]int{"a": 1, "d": 0}, "rank": 0}},
			"default_permissions": 0,
		})
	})
}

func TestFetchServerReplacesCache(t *testing.T) {
	p := platformtest.New(t)
	serveServer(p, "Fetched")
	c := startTestClient(t, p, nil)

	server, err := c.FetchServer(context.Background(), "S0")
	require.NoError(t, err)
	assert.Equal(t, "Fetched", server.Name)

	cached, ok := c.Server("S0")
	require.True(t, ok)
	assert.Equal(t, "Fetched", cached.Name)

	serverID, role, ok := c.Role("R0")
	require.True(t, ok)
	assert.Equal(t, "S0", serverID)
	assert.Equal(t, "Admin", role.Name)

	server.Name = "changed by caller"
	cached, _ = c.Server("S0")
	assert.Equal(t, "Fetched", cached.Name, "callers get their own copy")
}

func TestFetchChannelKeepsParentServer(t *testing.T) {
	p := platformtest.New(t)
	p.Handle(http.MethodGet, "/channels/{channelID}", func(w http.ResponseWriter, r *http.Request) {
		platformtest.WriteJSON(w, http.StatusOK, map[string]any{
			"channel_type": "TextChannel",
			"_id":          chi.URLParam(r, "channelID"),
			"server":       "S2",
			"name":         "renamed",
		})
	})
	c := startTestClient(t, p, nil)

	servers := expect[events.ServerCreated](t, c)
	channels := expect[events.ChannelCreated](t, c)
	for _, id := range []string{"S1", "S2"} {
		require.NoError(t, p.Send(`{"type":"ServerCreate","id":"`+id+`",
			"server":{"_id":"`+id+`","owner":"U1","name":"Guild","channels":[],"default_permissions":0},
			"channels":[],"emojis":[]}`))
		servers()
	}
	require.NoError(t, p.Send(`{"type":"ChannelCreate","channel_type":"TextChannel","_id":"C1","server":"S1","name":"general"}`))
	channels()

	fetched, err := c.FetchChannel(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, "S1", models.ChannelServerID(fetched))

	cached, ok := c.TextChannel("C1")
	require.True(t, ok)
	assert.Equal(t, "S1", cached.Server)
	assert.Equal(t, "renamed", cached.Name)

	s1, _ := c.Server("S1")
	assert.Equal(t, []string{"C1"}, s1.Channels)
	s2, _ := c.Server("S2")
	assert.Empty(t, s2.Channels)
}

func TestFetchMembersFeedsMemberEvents(t *testing.T) {
	p := platformtest.New(t)
	serveServer(p, "Home")
	p.Handle(http.MethodGet, "/servers/{serverID}/members", func(w http.ResponseWriter, r *http.Request) {
		serverID := chi.URLParam(r, "serverID")
		platformtest.WriteJSON(w, http.StatusOK, map[string]any{
			"members": []any{map[string]any{"_id": map[string]string{"server": serverID, "user": "U1"}, "joined_at": "2024-01-02T03:04:05Z"}},
			"users":   []any{map[string]any{"_id": "U1", "username": "friend", "discriminator": "0002"}},
		})
	})
	c := startTestClient(t, p, nil)
	ctx := context.Background()

	_, err := c.FetchServer(ctx, "S0")
	require.NoError(t, err)
	list, err := c.FetchMembers(ctx, "S0")
	require.NoError(t, err)
	require.Len(t, list.Users, 1)

	server, _ := c.Server("S0")
	require.Contains(t, server.Members, "U1")

	updated := expect[events.MemberUpdated](t, c)
	require.NoError(t, p.Send(`{"type":"ServerMemberUpdate","id":{"server":"S0","user":"U1"},"data":{"nickname":"Pal"},"clear":[]}`))
	e := updated()
	require.NotNil(t, e.After)

	server, _ = c.Server("S0")
	member := server.Members["U1"]
	require.NotNil(t, member.Nickname)
	assert.Equal(t, "Pal", *member.Nickname)

	_, err = c.FetchServer(ctx, "S0")
	require.NoError(t, err)
	server, _ = c.Server("S0")
	assert.Contains(t, server.Members, "U1", "a refetch keeps the member list")
}

func serveRoles(p *platformtest.Platform) {
	p.Handle(http.MethodPost, "/servers/{serverID}/roles", func(w http.ResponseWriter, r *http.Request) {
		platformtest.WriteJSON(w, http.StatusOK, map[string]any{
			"id":   "R1",
			"role": map[string]any{"name": "Mod", "permissions": map[string]int{"a": 0, "d": 0}, "rank": 3},
		})
	})
	p.Handle(http.MethodDelete, "/servers/{serverID}/roles/{roleID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRolesInHTTPMode(t *testing.T) {
	p := platformtest.New(t)
	serveServer(p, "Home")
	serveRoles(p)
	c := newTestClient(t, p, func(cfg *Config) { cfg.Mode = ModeHTTP })
	ctx := context.Background()
	require.NoError(t, c.LoginWithToken(ctx, p.Token))
	require.NoError(t, c.Start(ctx))

	_, err := c.FetchServer(ctx, "S0")
	require.NoError(t, err)

	role, err := c.CreateRole(ctx, "S0", CreateRole{Name: "Mod"})
	require.NoError(t, err)
	assert.Equal(t, "R1", role.ID)
	assert.Equal(t, int64(3), role.Rank)

	server, _ := c.Server("S0")
	assert.Equal(t, []string{"R0", "R1"}, []string{server.OrderedRoles()[0].ID, server.OrderedRoles()[1].ID})

	require.NoError(t, c.DeleteRole(ctx, "S0", "R1"))
	_, _, ok := c.Role("R1")
	assert.False(t, ok)
}

func TestRolesWithEventStreamWaitForEcho(t *testing.T) {
	p := platformtest.New(t)
	serveServer(p, "Home")
	serveRoles(p)
	c := startTestClient(t, p, nil)
	ctx := context.Background()

	_, err := c.FetchServer(ctx, "S0")
	require.NoError(t, err)

	_, err = c.CreateRole(ctx, "S0", CreateRole{Name: "Mod"})
	require.NoError(t, err)
	_, _, ok := c.Role("R1")
	assert.False(t, ok, "the cache only changes when the platform reports it")

	created := expect[events.RoleCreated](t, c)
	require.NoError(t, p.Send(`{"type":"ServerRoleUpdate","id":"S0","role_id":"R1","data":{"name":"Mod","rank":3},"clear":[]}`))
	assert.Equal(t, "Mod", created().Role.Name)

	_, role, ok := c.Role("R1")
	require.True(t, ok)
	assert.Equal(t, int64(3), role.Rank)
}

func TestEditArguments(t *testing.T) {
	p := platformtest.New(t)
	c := newTestClient(t, p, nil)
	ctx := context.Background()
	long := strings.Repeat("n", 33)

	tests := []struct {
		name      string
		call      func() error
		wantField string
	}{
		{"channel remove", func() error {
			_, err := c.EditChannel(ctx, "C1", EditChannel{Remove: []string{"Name"}})
			return err
		}, "remove[0]"},
		{"channel name", func() error {
			_, err := c.EditChannel(ctx, "C1", EditChannel{Name: &long})
			return err
		}, "name"},
		{"server remove", func() error {
			_, err := c.EditServer(ctx, "S1", EditServer{Remove: []string{"Owner"}})
			return err
		}, "remove[0]"},
		{"role name", func() error {
			_, err := c.CreateRole(ctx, "S1", CreateRole{})
			return err
		}, "name"},
		{"role remove", func() error {
			_, err := c.EditRole(ctx, "S1", "R1", EditRole{Remove: []string{"Name"}})
			return err
		}, "remove[0]"},
		{"member roles", func() error {
			roles := []string{""}
			_, err := c.EditMember(ctx, "S1", "U1", EditMember{Roles: &roles})
			return err
		}, "roles[0]"},
		{"ban reason", func() error {
			return c.BanMember(ctx, "S1", "U1", strings.Repeat("r", 1025))
		}, "reason"},
		{"group users", func() error {
			_, err := c.CreateGroup(ctx, CreateGroup{Name: "g", Users: make([]string, 50)})
			return err
		}, "users"},
		{"emoji name", func() error {
			_, err := c.CreateEmoji(ctx, "S1", "UP1", "Bad Name", false)
			return err
		}, "name"},
		{"webhook token", func() error {
			_, err := c.FetchWebhook(ctx, "W1", "")
			return err
		}, "token"},
		{"self remove", func() error {
			_, err := c.EditSelf(ctx, EditSelf{Remove: []string{"Username"}})
			return err
		}, "remove[0]"},
		{"upload tag", func() error {
			_, err := c.Upload(ctx, "memes", "cat.png", strings.NewReader("png"))
			return err
		}, "tag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var argErr *rest.ArgumentError
			require.ErrorAs(t, tt.call(), &argErr)
			assert.Equal(t, tt.wantField, argErr.Field)
		})
	}
	assert.Empty(t, p.Requests())
}

func TestCreateGroupInHTTPMode(t *testing.T) {
	p := platformtest.New(t)
	p.Handle(http.MethodPost, "/channels/create", func(w http.ResponseWriter, r *http.Request) {
		platformtest.WriteJSON(w, http.StatusOK, map[string]any{
			"channel_type": "Group",
			"_id":          "G1",
			"name":         "Friends",
			"owner":        p.Self.ID,
			"recipients":   []string{p.Self.ID, "U1"},
		})
	})
	c := newTestClient(t, p, func(cfg *Config) { cfg.Mode = ModeHTTP })
	require.NoError(t, c.LoginWithToken(context.Background(), p.Token))

	group, err := c.CreateGroup(context.Background(), CreateGroup{Name: "Friends", Users: []string{"U1"}})
	require.NoError(t, err)
	assert.True(t, group.HasRecipient("U1"))

	cached, ok := c.GroupChannel("G1")
	require.True(t, ok)
	assert.Equal(t, "Friends", cached.Name)
}

func TestFetchEmojiIsCacheFirst(t *testing.T) {
	p := platformtest.New(t)
	p.SetReady(map[string]any{
		"users":    []models.User{p.Self},
		"servers":  []any{},
		"channels": []any{},
		"emojis":   []map[string]any{{"_id": "E0", "parent": map[string]string{"type": "Detached"}, "creator_id": "U1", "name": "wave"}},
	})
	p.Handle(http.MethodGet, "/custom/emoji/{emojiID}", func(w http.ResponseWriter, r *http.Request) {
		platformtest.WriteJSON(w, http.StatusOK, map[string]any{
			"_id": chi.URLParam(r, "emojiID"), "parent": map[string]string{"type": "Server", "id": "S9"}, "creator_id": "U1", "name": "remote",
		})
	})
	c := startTestClient(t, p, nil)
	before := len(p.Requests())

	emoji, err := c.FetchEmoji(context.Background(), "E0")
	require.NoError(t, err)
	assert.Equal(t, "wave", emoji.Name)
	assert.Len(t, p.Requests(), before)

	emoji, err = c.FetchEmoji(context.Background(), "E9")
	require.NoError(t, err)
	assert.Equal(t, "remote", emoji.Name)
	assert.Equal(t, "S9", emoji.ServerID())
	assert.Len(t, p.Requests(), before+1)
}

func TestJoinInvite(t *testing.T) {
	p := platformtest.New(t)
	p.Handle(http.MethodPost, "/invites/{code}", func(w http.ResponseWriter, r *http.Request) {
		platformtest.WriteJSON(w, http.StatusOK, map[string]any{
			"type":     "Server",
			"server":   map[string]any{"_id": "S5", "owner": "U1", "name": "Joined", "channels": []string{"C5"}, "default_permissions": 0},
			"channels": []any{map[string]any{"channel_type": "TextChannel", "_id": "C5", "server": "S5", "name": "welcome"}},
		})
	})
	c := newTestClient(t, p, func(cfg *Config) { cfg.Mode = ModeHTTP })
	require.NoError(t, c.LoginWithToken(context.Background(), p.Token))

	server, err := c.JoinInvite(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Joined", server.Name)

	channels := c.ServerChannels("S5")
	require.Len(t, channels, 1)
	assert.Equal(t, "C5", channels[0].ChannelID())
}

func TestExecuteWebhookSkipsSessionToken(t *testing.T) {
	p := platformtest.New(t)

	var mutex sync.Mutex
	var sessionHeader string
	var executed bool
	p.HandlePublic(http.MethodPost, "/webhooks/{webhookID}/{token}", func(w http.ResponseWriter, r *http.Request) {
		mutex.Lock()
		sessionHeader = r.Header.Get("x-session-token")
		executed = true
		mutex.Unlock()
		platformtest.WriteJSON(w, http.StatusOK, map[string]any{
			"_id": "M1", "channel": "C1", "author": chi.URLParam(r, "webhookID"), "content": "from a hook",
			"webhook": map[string]any{"name": "Hook"},
		})
	})
	c := newTestClient(t, p, nil)
	require.NoError(t, c.LoginWithToken(context.Background(), p.Token))

	message, err := c.ExecuteWebhook(context.Background(), "W1", "secret", SendMessage{Content: "from a hook"})
	require.NoError(t, err)

	userMessage, ok := message.(*models.UserMessage)
	require.True(t, ok)
	require.NotNil(t, userMessage.Webhook)
	assert.Equal(t, "Hook", userMessage.Webhook.Name)

	mutex.Lock()
	defer mutex.Unlock()
	assert.True(t, executed)
	assert.Empty(t, sessionHeader)
}

func TestUpload(t *testing.T) {
	p := platformtest.New(t)
	c := newTestClient(t, p, func(cfg *Config) { cfg.Mode = ModeHTTP })
	ctx := context.Background()
	require.NoError(t, c.LoginWithToken(ctx, p.Token))

	_, err := c.Upload(ctx, TagAttachments, "cat.png", strings.NewReader("png"))
	require.Error(t, err, "the file server address is unknown before Start")

	require.NoError(t, c.Start(ctx))
	id, err := c.Upload(ctx, TagAttachments, "cat.png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "attachments-upload", id)
}
