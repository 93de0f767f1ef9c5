package resolve

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type name struct {
	GivenName  string
	FamilyName string
}

type email struct {
	Value   string
	Primary bool
}

type user struct {
	UserName string
	Name     *name
	Emails   []email
	Extra    map[string]string
	hidden   string
}

func TestParse(t *testing.T) {
	tests := []struct {
		path    string
		want    []Segment
		wantErr bool
	}{
		{path: "UserName", want: []Segment{{Name: "UserName"}}},
		{path: "Name:GivenName", want: []Segment{{Name: "Name"}, {Name: "GivenName"}}},
		{path: "Emails[0]:Value", want: []Segment{{Name: "Emails", Indexes: []int{0}}, {Name: "Value"}}},
		{path: "Matrix[1][2]", want: []Segment{{Name: "Matrix", Indexes: []int{1, 2}}}},
		{path: "[3]", want: []Segment{{Indexes: []int{3}}}},
		{path: "", wantErr: true},
		{path: "a::b", wantErr: true},
		{path: "a[x]", wantErr: true},
		{path: "a[-1]", wantErr: true},
		{path: "a[1", wantErr: true},
		{path: "a[1]b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := Parse(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestPathCanonicalResource(t *testing.T) {
	u := &user{
		UserName: "a@b.com",
		Name:     &name{GivenName: "Ada", FamilyName: "Lovelace"},
		Emails:   []email{{Value: "work@b.com", Primary: true}, {Value: "home@b.com"}},
		Extra:    map[string]string{"Department": "R&D"},
		hidden:   "secret",
	}

	tests := []struct {
		path string
		want any
		ok   bool
	}{
		{"UserName", "a@b.com", true},
		{"Name:GivenName", "Ada", true},
		{"Emails[0]:Value", "work@b.com", true},
		{"Emails[1]:Primary", false, true},
		{"Emails[2]:Value", nil, false},
		{"Extra:Department", "R&D", true},
		{"username", nil, false},
		{"name:givenName", nil, false},
		{"hidden", nil, false},
		{"Missing", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := Path(u, tt.path, CaseSensitive)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestPathNilPointer(t *testing.T) {
	_, ok := Path(&user{}, "Name:GivenName", CaseSensitive)
	require.False(t, ok)
	_, ok = Path(&user{}, "Name", CaseSensitive)
	require.False(t, ok)
}

func TestPathExternalJSON(t *testing.T) {
	var doc any
	require.NoError(t, json.Unmarshal([]byte(`{
		"data": {"Users": [{"ID": 7, "profile": {"mail": "x@y.z"}}]},
		"Key": "upper", "key": "lower"
	}`), &doc))

	got, ok := Path(doc, "Data:users[0]:id", CaseInsensitive)
	require.True(t, ok)
	require.Equal(t, float64(7), got)

	got, ok = Path(doc, "data:Users[0]:Profile:MAIL", CaseInsensitive)
	require.True(t, ok)
	require.Equal(t, "x@y.z", got)

	_, ok = Path(doc, "Data:users[0]:id", CaseSensitive)
	require.False(t, ok)

	got, ok = Path(doc, "key", CaseInsensitive)
	require.True(t, ok)
	require.Equal(t, "lower", got, "exact case wins over a folded match")

	got, ok = Path(doc, "KEY", CaseInsensitive)
	require.True(t, ok)
	require.Equal(t, "upper", got, "folded matches resolve in sorted key order")
}

func TestElements(t *testing.T) {
	elems, ok := Elements([]email{{Value: "a"}, {Value: "b"}})
	require.True(t, ok)
	require.Len(t, elems, 2)

	_, ok = Elements([]byte("abc"))
	require.False(t, ok)
	_, ok = Elements("abc")
	require.False(t, ok)
}

func TestIsEmpty(t *testing.T) {
	require.True(t, IsEmpty(nil))
	require.True(t, IsEmpty(""))
	require.True(t, IsEmpty("  "))
	require.True(t, IsEmpty([]any{}))
	require.True(t, IsEmpty((*name)(nil)))
	require.False(t, IsEmpty(false))
	require.False(t, IsEmpty(0))
	require.False(t, IsEmpty("x"))
}
