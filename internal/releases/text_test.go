package releases

import (
	"encoding/json"
	"testing"
)

func TestPlainText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "   ", ""},
		{"plain", "Just text", "Just text"},
		{"paragraphs", "<p>Hello&nbsp;<b>World</b></p><p>Second</p>", "Hello World\n\nSecond"},
		{"breaks", "a<br>b<br/>c", "a\nb\nc"},
		{"script dropped", "<div>keep</div><script>alert(1)</script><style>p{}</style>", "keep"},
		{"entities", "Fish &amp; Chips &quot;#1&quot;", `Fish & Chips "#1"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PlainText(tc.in); got != tc.want {
				t.Fatalf("PlainText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDateJSON(t *testing.T) {
	var r Release
	if err := json.Unmarshal([]byte(`{"id":7,"onsale_date":"2026-10-14T00:00:00"}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.OnsaleDate.String() != "2026-10-14" {
		t.Fatalf("onsale date = %q", r.OnsaleDate.String())
	}
	if err := json.Unmarshal([]byte(`{"id":8,"onsale_date":"someday"}`), &r); err != nil {
		t.Fatalf("unparseable dates must not fail decoding: %v", err)
	}
	if !r.OnsaleDate.IsZero() {
		t.Fatalf("expected unknown date, got %q", r.OnsaleDate.String())
	}
	b, err := json.Marshal(Release{ID: 9})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"id":9,"title":"","onsale_date":null}` {
		t.Fatalf("unexpected json %s", b)
	}
}

func TestParseDate(t *testing.T) {
	if _, err := ParseDate("14/10/2026"); err == nil {
		t.Fatal("expected error for bad layout")
	}
	d, err := ParseDate(" 2026-02-28 ")
	if err != nil || d.String() != "2026-02-28" {
		t.Fatalf("ParseDate = %v, %v", d, err)
	}
}
