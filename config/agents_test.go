package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentList_UnmarshalText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    AgentList
		wantErr bool
	}{
		{name: "blank", input: "  ", want: AgentList{}},
		{
			name:  "mixed case and spaces",
			input: " flight = http://a:1 ,HOTEL=http://b:2",
			want: AgentList{
				{Domain: "flight", URL: "http://a:1"},
				{Domain: "hotel", URL: "http://b:2"},
			},
		},
		{name: "url keeps its own equals sign", input: "cab=http://c:3/?region=eu", want: AgentList{{Domain: "cab", URL: "http://c:3/?region=eu"}}},
		{name: "missing url", input: "flight=", wantErr: true},
		{name: "missing domain", input: "=http://a:1", wantErr: true},
		{name: "no separator", input: "flight", wantErr: true},
		{name: "trailing comma", input: "flight=http://a:1,", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l AgentList
			err := l.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, l)
		})
	}
}

func TestAgentList_StringRoundTrip(t *testing.T) {
	l := AgentList{
		{Domain: "flight", URL: "http://a:1"},
		{Domain: "cab", URL: "http://c:3"},
	}
	assert.Equal(t, "flight=http://a:1,cab=http://c:3", l.String())

	var parsed AgentList
	require.NoError(t, parsed.UnmarshalText([]byte(l.String())))
	assert.Equal(t, l, parsed)

	assert.Empty(t, AgentList(nil).String())
}

func TestPortMap_UnmarshalText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    PortMap
		wantErr bool
	}{
		{name: "blank", input: "", want: PortMap{}},
		{name: "two domains", input: " Train = 5004,ferry=5005 ", want: PortMap{"train": 5004, "ferry": 5005}},
		{name: "not a number", input: "train=fast", wantErr: true},
		{name: "missing domain", input: "=5004", wantErr: true},
		{name: "no separator", input: "train", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m PortMap
			err := m.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m)
		})
	}
}

func TestPortMap_String(t *testing.T) {
	m := PortMap{"train": 5004, "ferry": 5005}
	assert.Equal(t, []string{"ferry", "train"}, m.Domains())
	assert.Equal(t, "ferry=5005,train=5004", m.String())

	var parsed PortMap
	require.NoError(t, parsed.UnmarshalText([]byte(m.String())))
	assert.Equal(t, m, parsed)
}
