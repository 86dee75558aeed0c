package listxml

import (
	"strings"
	"testing"
	"time"
)

const fullPage = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>example-bucket</Name>
  <Prefix>logs/</Prefix>
  <KeyCount>2</KeyCount>
  <MaxKeys>1000</MaxKeys>
  <IsTruncated>true</IsTruncated>
  <NextContinuationToken>1ueGcxLPRx1Tr</NextContinuationToken>
  <Contents>
    <Key>logs/2026-01-01/report.json</Key>
    <LastModified>2026-01-01T12:00:00.000Z</LastModified>
    <ETag>&quot;fba9dede5f27731c9771645a39863328&quot;</ETag>
    <Size>434234</Size>
    <StorageClass>STANDARD</StorageClass>
  </Contents>
  <Contents>
    <Key>logs/2026-01-02/report.json</Key>
    <LastModified>2026-01-02T12:00:00Z</LastModified>
    <ETag>"9c8af9a76df052144598c115ef33471e"</ETag>
    <Size>100</Size>
  </Contents>
</ListBucketResult>`

func TestParse_FullPage(t *testing.T) {
	page, err := Parse(strings.NewReader(fullPage))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(page.Objects) != 2 {
		t.Fatalf("got %d objects, want 2", len(page.Objects))
	}
	if !page.IsTruncated {
		t.Error("IsTruncated = false, want true")
	}
	if page.NextContinuationToken != "1ueGcxLPRx1Tr" {
		t.Errorf("token = %q", page.NextContinuationToken)
	}
	if page.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", page.Skipped)
	}

	first := page.Objects[0]
	if first.Key != "logs/2026-01-01/report.json" {
		t.Errorf("Key = %q", first.Key)
	}
	if first.Size != 434234 {
		t.Errorf("Size = %d", first.Size)
	}
	if first.ETag != "fba9dede5f27731c9771645a39863328" {
		t.Errorf("ETag = %q, want quotes stripped", first.ETag)
	}
	want := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if !first.LastModified.Equal(want) {
		t.Errorf("LastModified = %v, want %v", first.LastModified, want)
	}
}

func TestParse_FinalPage(t *testing.T) {
	const doc = `<ListBucketResult>
  <IsTruncated>false</IsTruncated>
  <Contents>
    <Key>a</Key><Size>1</Size><ETag>"x"</ETag>
    <LastModified>2026-01-01T00:00:00Z</LastModified>
  </Contents>
</ListBucketResult>`

	page, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if page.IsTruncated {
		t.Error("IsTruncated = true, want false")
	}
	if page.NextContinuationToken != "" {
		t.Errorf("token = %q, want empty", page.NextContinuationToken)
	}
}

func TestParse_DropsMalformedEntries(t *testing.T) {
	const doc = `<ListBucketResult>
  <IsTruncated>false</IsTruncated>
  <Contents>
    <Key>good</Key><Size>10</Size><ETag>"e"</ETag>
    <LastModified>2026-01-01T00:00:00Z</LastModified>
  </Contents>
  <Contents>
    <Key>no-size</Key><ETag>"e"</ETag>
    <LastModified>2026-01-01T00:00:00Z</LastModified>
  </Contents>
  <Contents>
    <Key>bad-size</Key><Size>many</Size><ETag>"e"</ETag>
    <LastModified>2026-01-01T00:00:00Z</LastModified>
  </Contents>
  <Contents>
    <Key>bad-date</Key><Size>10</Size><ETag>"e"</ETag>
    <LastModified>yesterday</LastModified>
  </Contents>
  <Contents>
    <Size>10</Size><ETag>"e"</ETag>
    <LastModified>2026-01-01T00:00:00Z</LastModified>
  </Contents>
</ListBucketResult>`

	page, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Objects) != 1 {
		t.Fatalf("got %d objects, want 1", len(page.Objects))
	}
	if page.Objects[0].Key != "good" {
		t.Errorf("kept %q, want %q", page.Objects[0].Key, "good")
	}
	if page.Skipped != 4 {
		t.Errorf("Skipped = %d, want 4", page.Skipped)
	}
}

func TestParse_EmptyListing(t *testing.T) {
	const doc = `<ListBucketResult><IsTruncated>false</IsTruncated></ListBucketResult>`
	page, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Objects) != 0 || page.IsTruncated || page.NextContinuationToken != "" {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestParse_InvalidXML(t *testing.T) {
	if _, err := Parse(strings.NewReader("<ListBucketResult><Contents>")); err == nil {
		t.Error("expected decode error for truncated document")
	}
}
