package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/fairprice/internal/table"
)

var commaUTF8 = Diagnosis{Encoding: UTF8, Separator: Comma}

func TestLoadStrict(t *testing.T) {
	path := writeFile(t, "ok.csv", []byte("cnpj,valor\n\"12.345.678/0001-90\",\"1,50\"\n99,2\n"))

	tbl, meta, err := NewLoader(LoadOptions{}).Load(context.Background(), path, commaUTF8)
	require.NoError(t, err)

	assert.Equal(t, "strict", meta.Strategy)
	assert.Equal(t, 1, meta.Tier)
	assert.Equal(t, 2, meta.RowsRead)
	assert.False(t, meta.Degraded())
	assert.Equal(t, []string{"cnpj", "valor"}, tbl.Names())
	assert.Equal(t, "1,50", tbl.Columns[1].Values[0].Text())
}

func TestLoadFlexibleDropsMismatchedRows(t *testing.T) {
	path := writeFile(t, "flex.csv", []byte("a,b,c\n1,2,3\n1,2\n4,5,6\n7,8,9,10\n"))

	tbl, meta, err := NewLoader(LoadOptions{}).Load(context.Background(), path, commaUTF8)
	require.NoError(t, err)

	assert.Equal(t, "flexible", meta.Strategy)
	assert.Equal(t, 2, meta.Tier)
	assert.Equal(t, 4, meta.RowsRead)
	assert.Equal(t, 2, meta.RowsDropped)
	assert.Equal(t, 2, tbl.NumRows())
	assert.True(t, tbl.Rectangular())
	require.Len(t, meta.Failures, 1)
	assert.Equal(t, "strict", meta.Failures[0].Strategy)
}

func TestLoadUnterminatedQuoteKeepsLaterRows(t *testing.T) {
	path := writeFile(t, "quote.csv", []byte("a,b\n1,2\n\"x,3\n4,5\n6,7\n8,9\n"))

	tbl, meta, err := NewLoader(LoadOptions{}).Load(context.Background(), path, commaUTF8)
	require.NoError(t, err)

	// The open quote would swallow every later line as one record, so the
	// record-based tiers give way to the line-based one.
	assert.Equal(t, "aggressive", meta.Strategy)
	assert.Equal(t, 5, meta.RowsRead)
	assert.Equal(t, 1, meta.RowsDropped)
	require.Equal(t, 4, tbl.NumRows())
	assert.Equal(t, []string{"1", "4", "6", "8"}, columnText(tbl.Columns[0].Values))
	assert.Equal(t, []string{"2", "5", "7", "9"}, columnText(tbl.Columns[1].Values))
}

func TestLoadFlexibleDropsBareQuoteLine(t *testing.T) {
	path := writeFile(t, "bare.csv", []byte("a,b\n1,2\nx\"y,3\n4,5\n"))

	tbl, meta, err := NewLoader(LoadOptions{}).Load(context.Background(), path, commaUTF8)
	require.NoError(t, err)

	assert.Equal(t, "flexible", meta.Strategy)
	assert.Equal(t, 3, meta.RowsRead)
	assert.Equal(t, 1, meta.RowsDropped)
	assert.Equal(t, []string{"1", "4"}, columnText(tbl.Columns[0].Values))
}

func TestLoadQuotedNewlineStaysStrict(t *testing.T) {
	path := writeFile(t, "multi.csv", []byte("a,b\n\"linha 1\nlinha 2\",3\n4,5\n"))

	tbl, meta, err := NewLoader(LoadOptions{}).Load(context.Background(), path, commaUTF8)
	require.NoError(t, err)

	assert.Equal(t, "strict", meta.Strategy)
	assert.False(t, meta.Degraded())
	assert.Equal(t, "linha 1\nlinha 2", tbl.Columns[0].Values[0].Text())
}

func TestLoadAggressiveRedetectsSeparator(t *testing.T) {
	// The diagnosis says comma, but the header is semicolon-separated, so no
	// body row matches the one-field header and the flexible tier gives up.
	path := writeFile(t, "mixed.csv", []byte("a;b;c\n1,2,3\n4,5,6\n7;8,9\n"))

	tbl, meta, err := NewLoader(LoadOptions{}).Load(context.Background(), path, commaUTF8)
	require.NoError(t, err)

	assert.Equal(t, "aggressive", meta.Strategy)
	assert.Equal(t, 3, meta.Tier)
	assert.Equal(t, []string{"a", "b", "c"}, tbl.Names())
	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, 1, meta.RowsDropped)
	assert.Equal(t, "4", tbl.Columns[0].Values[1].Text())
}

func TestLoadManualOnInvalidUTF8(t *testing.T) {
	content := []byte("municipio,uf\nS\xe3o Paulo,SP\nRio,RJ,extra\n")
	path := writeFile(t, "bad.csv", content)

	tbl, meta, err := NewLoader(LoadOptions{}).Load(context.Background(), path, commaUTF8)
	require.NoError(t, err)

	assert.Equal(t, "manual", meta.Strategy)
	assert.Equal(t, 4, meta.Tier)
	assert.Len(t, meta.Failures, 3)
	assert.Equal(t, "S?o Paulo", tbl.Columns[0].Values[0].Text())
	assert.Equal(t, 1, meta.RowsTruncated)
	assert.Equal(t, 1, meta.BytesReplaced)
	assert.True(t, tbl.Rectangular())
}

func TestLoadManualCountsReplacedBytes(t *testing.T) {
	// Every row is well formed; only one latin-1 byte breaks UTF-8.
	content := []byte("municipio,uf\nRecife,PE\nmunic\xedpio,SP\n")
	path := writeFile(t, "latin.csv", content)

	tbl, meta, err := NewLoader(LoadOptions{}).Load(context.Background(), path, commaUTF8)
	require.NoError(t, err)

	assert.Equal(t, "manual", meta.Strategy)
	assert.Zero(t, meta.Repaired())
	assert.Equal(t, 1, meta.BytesReplaced)
	assert.True(t, meta.Degraded())
	assert.Equal(t, "munic?pio", tbl.Columns[0].Values[1].Text())
}

func TestManualPadsAndTruncates(t *testing.T) {
	header := fieldsLine("h", 20)
	short := fieldsLine("s", 18)
	long := fieldsLine("l", 22)
	path := writeFile(t, "wide.csv", []byte(header+"\n"+short+"\n"+long+"\n"))

	loader := NewLoader(LoadOptions{}).WithStrategies(Strategy{Name: "manual", Run: loadManual})
	tbl, meta, err := loader.Load(context.Background(), path, commaUTF8)
	require.NoError(t, err)

	require.Equal(t, 20, tbl.NumCols())
	require.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, 1, meta.RowsPadded)
	assert.Equal(t, 1, meta.RowsTruncated)

	// The 18-field row gains two missing cells at the end.
	assert.Equal(t, "s17", tbl.Columns[17].Values[0].Text())
	assert.True(t, tbl.Columns[18].Values[0].IsMissing())
	assert.True(t, tbl.Columns[19].Values[0].IsMissing())

	// The 22-field row loses its last two fields.
	assert.Equal(t, "l19", tbl.Columns[19].Values[1].Text())
}

func TestLoadAlwaysRectangular(t *testing.T) {
	inputs := []string{
		"a,b\n1\n1,2,3\n\n\"unterminated,4\n",
		"a;b;c\n1;2\n3\n4;5;6;7;8\n",
		"x\n1,2\n",
		"a,b\n\xff\xfe,1\n",
	}
	for i, in := range inputs {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			path := writeFile(t, "f.csv", []byte(in))
			tbl, _, err := NewLoader(LoadOptions{}).Load(context.Background(), path, commaUTF8)
			require.NoError(t, err)
			assert.True(t, tbl.Rectangular())
			assert.NoError(t, tbl.Validate())
		})
	}
}

func TestLoadRowCap(t *testing.T) {
	path := writeFile(t, "cap.csv", []byte("a,b\n1,2\n3,4\n5,6\n"))

	tbl, meta, err := NewLoader(LoadOptions{MaxRows: 2}).Load(context.Background(), path, commaUTF8)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows())
	assert.True(t, meta.Capped)
}

func TestLoadByteCap(t *testing.T) {
	path := writeFile(t, "cap.csv", []byte("a,b\n1,2\n3,4\n5,6\n"))

	tbl, meta, err := NewLoader(LoadOptions{MaxBytes: 10}).Load(context.Background(), path, commaUTF8)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.NumRows())
	assert.True(t, meta.Capped)
	assert.Equal(t, "strict", meta.Strategy)
}

func TestLoadUnreadable(t *testing.T) {
	path := writeFile(t, "empty.csv", nil)
	tbl, _, err := NewLoader(LoadOptions{}).Load(context.Background(), path, commaUTF8)
	require.Error(t, err)
	assert.Nil(t, tbl)
	assert.True(t, errors.Is(err, ErrUnreadable))
	assert.True(t, errors.Is(err, ErrEmptyFile))
}

func TestLoadCancelledExposesNoTable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := writeFile(t, "f.csv", []byte("a,b\n1,2\n"))
	tbl, _, err := NewLoader(LoadOptions{}).Load(ctx, path, commaUTF8)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, tbl)
}

func columnText(values []table.Value) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.Text()
	}
	return out
}

func fieldsLine(prefix string, n int) string {
	fields := make([]string, n)
	for i := range fields {
		fields[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return strings.Join(fields, ",")
}
