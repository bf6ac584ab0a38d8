package ingest

import (
	"io"
	"strings"
	"testing"
)

func TestNormalizingReaderCRLFAndCR(t *testing.T) {
	r := NormalizingReader(strings.NewReader("a\r\nb\rc\nd"))
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(out) != "a\nb\nc\nd" {
		t.Fatalf("got %q", out)
	}
}

func TestNormalizingReaderTrailingLoneCR(t *testing.T) {
	r := NormalizingReader(strings.NewReader("a\r"))
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(out) != "a\n" {
		t.Fatalf("got %q, want %q", out, "a\n")
	}
}

func TestNormalizingReaderLargeInput(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 5000; i++ {
		b.WriteString("field1,field2,field3\r\n")
	}
	r := NormalizingReader(strings.NewReader(b.String()))
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if strings.Contains(string(out), "\r") {
		t.Fatalf("output still contains CR")
	}
	if got := strings.Count(string(out), "\n"); got != 5000 {
		t.Fatalf("newline count = %d, want 5000", got)
	}
}
