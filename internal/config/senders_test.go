package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSenderList(t *testing.T) {
	path := writeFile(t, "delete.json", `{"emails": ["Spam@X.com", " news@example.org ", "Boss <BOSS@x.com>"]}`)

	list, err := LoadSenderList(ListDelete, path)
	require.NoError(t, err)

	assert.Equal(t, ListDelete, list.Name)
	assert.Equal(t, 3, list.Len())
	assert.Equal(t, []string{"boss@x.com", "news@example.org", "spam@x.com"}, list.Addresses())
	assert.True(t, list.Contains("spam@x.com"))
	assert.True(t, list.Contains("SPAM@x.COM"))
	assert.False(t, list.Contains("spam@x.co"))
	assert.False(t, list.Contains("pam@x.com"))
}

func TestSenderList_NonStandardAddresses(t *testing.T) {
	list, err := NewSenderList(ListNotify, "First..Last@x.com", "trailing.@x.com")
	require.NoError(t, err)

	assert.Equal(t, []string{"first..last@x.com", "trailing.@x.com"}, list.Addresses())
	assert.True(t, list.Contains("first..last@x.com"))
	assert.True(t, list.Contains(" First..Last@X.com "))
	assert.True(t, list.Contains("trailing.@x.com"))
	assert.False(t, list.Contains("first.last@x.com"))
}

func TestSenderList_ContainsMatchesBareAddressOnly(t *testing.T) {
	list, err := NewSenderList(ListDelete, "spam@x.com")
	require.NoError(t, err)

	assert.False(t, list.Contains("Spammer <spam@x.com>"), "envelope senders are already bare")
	assert.False(t, list.Contains(""))
}

func TestLoadSenderList_EmptyIsValid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "absent key", content: `{}`},
		{name: "null", content: `{"emails": null}`},
		{name: "empty list", content: `{"emails": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "list.json", tt.content)

			list, err := LoadSenderList(ListNotify, path)
			require.NoError(t, err)
			assert.Equal(t, 0, list.Len())
			assert.False(t, list.Contains("anyone@example.com"))
		})
	}
}

func TestLoadSenderList_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid json", content: `{"emails": [`},
		{name: "not a list", content: `{"emails": "spam@x.com"}`},
		{name: "non-string entry", content: `{"emails": [42]}`},
		{name: "invalid address", content: `{"emails": ["not an address"]}`},
		{name: "missing domain", content: `{"emails": ["spam@"]}`},
		{name: "two at signs", content: `{"emails": ["a@b@c.com"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "list.json", tt.content)

			_, err := LoadSenderList(ListAttachment, path)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, path, cfgErr.Path)
		})
	}
}

func TestLoadSenderList_MissingFile(t *testing.T) {
	_, err := LoadSenderList(ListDelete, filepath.Join(t.TempDir(), "missing.json"))

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoadSenderLists(t *testing.T) {
	s := Settings{
		DeleteListFile:     writeFile(t, "d.json", `{"emails": ["spam@x.com"]}`),
		NotifyListFile:     writeFile(t, "n.json", `{"emails": ["boss@x.com"]}`),
		AttachmentListFile: writeFile(t, "a.json", `{"emails": []}`),
	}

	lists, err := LoadSenderLists(s)
	require.NoError(t, err)

	assert.True(t, lists.Delete.Contains("spam@x.com"))
	assert.True(t, lists.Notify.Contains("boss@x.com"))
	assert.Equal(t, 0, lists.Attachment.Len())
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "a@b.com", want: "a@b.com"},
		{in: "  A@B.Com ", want: "a@b.com"},
		{in: `"Jane Doe" <Jane@Example.com>`, want: "jane@example.com"},
		{in: "", wantErr: true},
		{in: "jane", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeAddress(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
