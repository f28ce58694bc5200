package linkdetect

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mdedit/pkg/styled"
)

func TestLinkifyFindsBareURLs(t *testing.T) {
	got := Linkify("visit www.google.com now")
	require.Equal(t, []styled.Range{{Location: 6, Length: 14}}, got)
}

func TestLinkifyCountsRunes(t *testing.T) {
	got := Linkify("é •\thttps://go.dev/doc")
	require.Equal(t, []styled.Range{{Location: 4, Length: 18}}, got)
}

func TestLinkifySkipsCodeAndPlainText(t *testing.T) {
	require.Empty(t, Linkify("no links here"))
	require.Empty(t, Linkify("`https://x.io`"))
	require.Empty(t, Linkify(""))
	require.Empty(t, None("https://x.io"))
}

func TestLinkifyMultiple(t *testing.T) {
	got := Linkify("a https://a.io\nb www.b.org")
	require.Equal(t, []styled.Range{{Location: 2, Length: 12}, {Location: 17, Length: 9}}, got)
}
