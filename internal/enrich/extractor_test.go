package enrich

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractor_FiltersFalsePositives(t *testing.T) {
	t.Parallel()
	body := `
		<html><body>
		<p>Reach us at contact@acme.com</p>
		<img src="logo@2x.png" alt="logo@2x.png">
		<p>fake@example.com</p>
		</body></html>`

	ex := NewExtractor()
	got := ex.Extract(PageResult{
		URL:    "https://acme.com/contact",
		Status: FetchOK,
		Body:   []byte(body),
	})

	require.Len(t, got, 1)
	require.Equal(t, "contact@acme.com", got[0].Address)
	require.Equal(t, "https://acme.com/contact", got[0].SourceURL)
}

func TestExtractor_MailtoAndText(t *testing.T) {
	t.Parallel()
	body := `
		<a href="mailto:hello@acme.io">Email us</a>
		support@acme.io
		firstname.lastname@sub.acme.io`

	ex := NewExtractor()
	got := ex.Extract(PageResult{URL: "https://acme.io/", Status: FetchOK, Body: []byte(body)})

	addrs := make([]string, 0, len(got))
	for _, c := range got {
		addrs = append(addrs, c.Address)
	}
	require.ElementsMatch(t, []string{
		"hello@acme.io",
		"support@acme.io",
		"firstname.lastname@sub.acme.io",
	}, addrs)
}

func TestExtractor_PreservesCaseDedupsInsensitive(t *testing.T) {
	t.Parallel()
	ex := NewExtractor()
	got := ex.Extract(PageResult{
		URL:    "https://acme.com/",
		Status: FetchOK,
		Body:   []byte("Sales@Acme.com and sales@acme.com"),
	})
	require.Len(t, got, 1)
	require.Equal(t, "Sales@Acme.com", got[0].Address)
}

func TestExtractor_SkipsNonOKPages(t *testing.T) {
	t.Parallel()
	ex := NewExtractor()
	require.Empty(t, ex.Extract(PageResult{Status: FetchBlocked, Body: []byte("a@b.com")}))
	require.Empty(t, ex.Extract(PageResult{Status: FetchError, Body: []byte("a@b.com")}))
}

func TestExtractor_DisposableDomains(t *testing.T) {
	t.Parallel()
	ex := NewExtractor()
	got := ex.Extract(PageResult{
		URL:    "https://acme.com/",
		Status: FetchOK,
		Body:   []byte("real@acme.com throwaway@mailinator.com x@yopmail.com"),
	})
	require.Len(t, got, 1)
	require.Equal(t, "real@acme.com", got[0].Address)
}
