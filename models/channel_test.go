package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeChannel(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantType ChannelType
		check    func(t *testing.T, c Channel)
	}{
		{
			name:     "text",
			data:     `{"channel_type":"TextChannel","_id":"C1","server":"S1","name":"general","description":"hi"}`,
			wantType: ChannelTypeText,
			check: func(t *testing.T, c Channel) {
				text := c.(*TextChannel)
				assert.Equal(t, "S1", text.Server)
				assert.Equal(t, "general", text.Name)
				assert.Equal(t, "S1", ChannelServerID(c))
			},
		},
		{
			name:     "voice",
			data:     `{"channel_type":"VoiceChannel","_id":"C2","server":"S1","name":"talk"}`,
			wantType: ChannelTypeVoice,
		},
		{
			name:     "group",
			data:     `{"channel_type":"Group","_id":"C3","name":"friends","owner":"U1","recipients":["U1","U2"]}`,
			wantType: ChannelTypeGroup,
			check: func(t *testing.T, c Channel) {
				group := c.(*GroupChannel)
				assert.True(t, group.HasRecipient("U2"))
				assert.Empty(t, ChannelServerID(c))
			},
		},
		{
			name:     "direct message",
			data:     `{"channel_type":"DirectMessage","_id":"C4","active":true,"recipients":["U1","U2"]}`,
			wantType: ChannelTypeDM,
		},
		{
			name:     "saved messages",
			data:     `{"channel_type":"SavedMessages","_id":"C5","user":"U1"}`,
			wantType: ChannelTypeSavedMessages,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channel, err := DecodeChannel([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, channel.Type())
			if tt.check != nil {
				tt.check(t, channel)
			}

			encoded, err := json.Marshal(channel)
			require.NoError(t, err)
			again, err := DecodeChannel(encoded)
			require.NoError(t, err)
			assert.Equal(t, channel, again)
		})
	}
}

func TestDecodeChannelUnknownType(t *testing.T) {
	_, err := DecodeChannel([]byte(`{"channel_type":"Forum","_id":"C1"}`))
	assert.ErrorContains(t, err, "unknown channel type")
}

func TestDecodeChannels(t *testing.T) {
	channels, err := DecodeChannels([]byte(`[
		{"channel_type":"TextChannel","_id":"C1","server":"S1","name":"a"},
		{"channel_type":"SavedMessages","_id":"C2","user":"U1"}
	]`))
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "C1", channels[0].ChannelID())
	assert.Equal(t, "C2", channels[1].ChannelID())
}

func TestPartialChannelApply(t *testing.T) {
	channel := &TextChannel{ServerChannel{
		ID:          "C1",
		Server:      "S1",
		Name:        "general",
		Description: ptr("hello"),
		NSFW:        false,
	}}

	var partial PartialChannel
	require.NoError(t, json.Unmarshal([]byte(`{"name":"lobby","nsfw":true,"active":true}`), &partial))
	partial.ApplyClear([]string{"Description"})

	patched := channel.Clone()
	partial.Apply(patched)
	text := patched.(*TextChannel)

	assert.Equal(t, "lobby", text.Name)
	assert.True(t, text.NSFW)
	assert.Nil(t, text.Description)
	assert.Equal(t, "S1", text.Server)
	assert.Equal(t, "general", channel.Name, "the original must not change")

	again := patched.Clone()
	partial.Apply(again)
	assert.Equal(t, patched, again)
}

func TestPartialChannelApplyGroup(t *testing.T) {
	group := &GroupChannel{ID: "C1", Name: "friends", Owner: "U1", Recipients: []string{"U1"}}

	PartialChannel{Owner: Set("U2"), Name: Set("pals")}.Apply(group)

	assert.Equal(t, "U2", group.Owner)
	assert.Equal(t, "pals", group.Name)
	assert.Equal(t, []string{"U1"}, group.Recipients)
}
