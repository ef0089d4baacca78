package crawler

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleLog() *Log {
	l := NewLog()
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	l.Push(Record{
		Time:      base,
		EntityID:  "17",
		URL:       "https://example.com",
		Exception: "connection refused",
	})
	l.Push(Record{
		Time:      base.Add(time.Minute),
		Attribute: "status_code",
		URL:       "https://example.com/page",
		Exception: "attribute not allowed",
	})
	return l
}

func TestPushPreservesInsertionOrder(t *testing.T) {
	l := sampleLog()
	records := l.Records()
	require.Len(t, records, 2)
	require.Equal(t, "17", records[0].EntityID)
	require.Equal(t, "status_code", records[1].Attribute)
}

func TestConcurrentPushes(t *testing.T) {
	l := NewLog()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Push(Record{Exception: "x"})
		}()
	}
	wg.Wait()
	require.Equal(t, 50, l.Len())
}

func TestExportCsvIsIdempotent(t *testing.T) {
	l := sampleLog()
	dir := t.TempDir()

	first := filepath.Join(dir, "errors1.csv")
	second := filepath.Join(dir, "errors2.csv")

	out, err := l.Export(first)
	require.NoError(t, err)
	require.Equal(t, first, out)
	_, err = l.Export(second)
	require.NoError(t, err)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	require.Equal(t, a, b, "unchanged log exports byte-identical output")

	require.Contains(t, string(a), "time,entity_id,attribute,url,exception")
	require.Contains(t, string(a), "connection refused")
	require.Equal(t, 2, l.Len(), "export never mutates the log")
}

func TestExportGobRoundTrip(t *testing.T) {
	l := sampleLog()
	path := filepath.Join(t.TempDir(), "errors.gob")

	_, err := l.Export(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []Record
	require.NoError(t, gob.NewDecoder(bytes.NewReader(data)).Decode(&decoded))
	require.Equal(t, l.Records(), decoded)
}

func TestExportXlsx(t *testing.T) {
	l := sampleLog()
	path := filepath.Join(t.TempDir(), "errors.xlsx")

	_, err := l.Export(path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(0)
	header, err := f.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	require.Equal(t, "time", header)

	exception, err := f.GetCellValue(sheet, "E2")
	require.NoError(t, err)
	require.Equal(t, "connection refused", exception)
}

func TestExportUnsupportedExtension(t *testing.T) {
	l := sampleLog()
	out, err := l.Export(filepath.Join(t.TempDir(), "errors.pdf"))
	require.Error(t, err)
	require.Empty(t, out)
	require.Equal(t, 2, l.Len())
}
