package resume

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

// minimalPDF assembles a one-page PDF with a correct xref table.
func minimalPDF() []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestInspectAcceptsValidPDF(t *testing.T) {
	info, err := Inspect(minimalPDF())
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.Pages != 1 {
		t.Fatalf("pages = %d, want 1", info.Pages)
	}
}

func TestInspectRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "not a pdf", data: []byte("hello world"), want: ErrUnreadable},
		{name: "truncated pdf", data: []byte("%PDF-1.4\n1 0 obj\n"), want: ErrUnreadable},
		{name: "too large", data: make([]byte, MaxSize+1), want: ErrTooLarge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Inspect(tc.data); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCheckName(t *testing.T) {
	for name, ok := range map[string]bool{"cv.pdf": true, "CV.PDF": true, "cv.docx": false, "pdf": false} {
		if err := CheckName(name); (err == nil) != ok {
			t.Fatalf("CheckName(%q) = %v, want ok=%v", name, err, ok)
		}
	}
}
