package catalog

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const listingHTML = `<html><body>
<table id="GridView1">
  <tr><th>Data File Name</th><th>Doc File</th><th>Data File</th><th>Date Published</th></tr>
  <tr>
    <td>Demographic Variables and Sample Weights</td>
    <td><a href="/Nchs/Data/Nhanes/Public/2021/DataFiles/DEMO_L.htm">DEMO_L Doc</a></td>
    <td><a href="/Nchs/Data/Nhanes/Public/2021/DataFiles/DEMO_L.xpt">DEMO_L Data [XPT, 3.4 MB]</a></td>
    <td>September 2024</td>
  </tr>
  <tr>
    <td>Diabetes</td>
    <td><a href="/Nchs/Data/Nhanes/Public/2021/DataFiles/DIQ_L.htm">DIQ_L Doc</a></td>
    <td><a href="/Nchs/Data/Nhanes/Public/2021/DataFiles/DIQ_L.XPT">DIQ_L Data [XPT, 0.6 MB]</a></td>
    <td>September 2024</td>
  </tr>
  <tr>
    <td>Withdrawn File</td>
    <td><a href="/Nchs/Data/Nhanes/Public/2021/DataFiles/XXX_L.htm">XXX_L Doc</a></td>
    <td>RDC Only</td>
    <td>September 2024</td>
  </tr>
</table>
</body></html>`

func TestParseExtractsFilesAndLabels(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listingHTML))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	base, _ := url.Parse("https://wwwn.cdc.gov/nchs/nhanes/search/datapage.aspx?Component=Demographics")

	cat := Parse(doc, base, ".xpt")

	wantFiles := []string{
		"https://wwwn.cdc.gov/Nchs/Data/Nhanes/Public/2021/DataFiles/DEMO_L.xpt",
		"https://wwwn.cdc.gov/Nchs/Data/Nhanes/Public/2021/DataFiles/DIQ_L.XPT",
	}
	if len(cat.Files) != len(wantFiles) {
		t.Fatalf("files = %#v, want %#v", cat.Files, wantFiles)
	}
	for i, f := range cat.Files {
		if f != wantFiles[i] {
			t.Fatalf("files[%d] = %q, want %q", i, f, wantFiles[i])
		}
	}

	if got := cat.Labels["DEMO_L"]; got != "Demographic Variables and Sample Weights" {
		t.Fatalf("DEMO_L label = %q", got)
	}
	if got := cat.Labels["DIQ_L"]; got != "Diabetes" {
		t.Fatalf("DIQ_L label = %q", got)
	}
	// The withdrawn row still carries a code and a description.
	if got := cat.Labels["XXX_L"]; got != "Withdrawn File" {
		t.Fatalf("XXX_L label = %q", got)
	}
}

func TestFetchListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	cat, err := Fetch(srv.Client(), srv.URL+"/nchs/nhanes/search/datapage.aspx", ".xpt")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(cat.Files) != 2 {
		t.Fatalf("files = %#v", cat.Files)
	}
	if !strings.HasPrefix(cat.Files[0], srv.URL) {
		t.Fatalf("file url not absolute against origin: %q", cat.Files[0])
	}
}

func TestFetchListingFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := Fetch(srv.Client(), srv.URL, ".xpt"); err == nil {
		t.Fatal("expected error for non-200 listing response")
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	cat := New()
	cat.Files = []string{"https://example.org/DEMO_L.xpt"}
	cat.Labels["DEMO_L"] = "Demographics"

	path := t.TempDir() + "/catalog.yaml"
	if err := cat.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(got.Files) != 1 || got.Files[0] != cat.Files[0] {
		t.Fatalf("files = %#v", got.Files)
	}
	if got.Labels["DEMO_L"] != "Demographics" {
		t.Fatalf("labels = %#v", got.Labels)
	}
}

func TestMerge(t *testing.T) {
	dst := New()
	dst.Files = []string{"a.xpt"}
	dst.Labels["A_L"] = "Alpha"

	src := New()
	src.Files = []string{"a.xpt", "b.xpt"}
	src.Labels["B_L"] = "Beta"

	Merge(dst, src)

	if len(dst.Files) != 2 || dst.Files[1] != "b.xpt" {
		t.Fatalf("merged files = %#v", dst.Files)
	}
	if dst.Labels["A_L"] != "Alpha" || dst.Labels["B_L"] != "Beta" {
		t.Fatalf("merged labels = %#v", dst.Labels)
	}
}
