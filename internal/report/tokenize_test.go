package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const icacheReport = `
I-Cache statistics:
	Number of reads performed: 	14
	Words read from memory: 	9
	Read misses:
	  Compulsory misses: 		7
	  Conflict misses: 		2
	  Miss rate with compulsory: 	50.00%
	  Miss rate with conflict: 	14.29%
`

func TestTokenizeStatisticsReport(t *testing.T) {
	doc, err := Tokenize([]byte(icacheReport))
	require.NoError(t, err)

	require.Len(t, doc, 8)
	assert.Equal(t, Line{"I-Cache", "statistics:"}, doc[0])
	assert.Equal(t, Line{"Number", "of", "reads", "performed:", "14"}, doc[1])
	assert.Equal(t, Line{"Read", "misses:"}, doc[3])
	assert.Equal(t, Line{"Miss", "rate", "with", "conflict:", "14.29%"}, doc[7])
}

func TestTokenizeDropsBlankLines(t *testing.T) {
	doc, err := Tokenize([]byte("\n\n  \t \na b\n\n c \n"))
	require.NoError(t, err)
	assert.Equal(t, Document{{"a", "b"}, {"c"}}, doc)
}

func TestTokenizeCRLF(t *testing.T) {
	doc, err := Tokenize([]byte("WordBits 0, RowBits 3\r\nD_READ at 0000a0b4\r\n"))
	require.NoError(t, err)
	assert.Equal(t, Document{
		{"WordBits", "0,", "RowBits", "3"},
		{"D_READ", "at", "0000a0b4"},
	}, doc)
}

func TestTokenizeLoneCarriageReturn(t *testing.T) {
	doc, err := Tokenize([]byte("I-Cache statistics:\rHits 10\r\rMisses 2\r\nTotal 12\r"))
	require.NoError(t, err)
	assert.Equal(t, Document{
		{"I-Cache", "statistics:"},
		{"Hits", "10"},
		{"Misses", "2"},
		{"Total", "12"},
	}, doc)
}

func TestScanLinesWaitsForByteAfterCarriageReturn(t *testing.T) {
	advance, token, err := scanLines([]byte("Hits 10\r"), false)
	require.NoError(t, err)
	assert.Zero(t, advance)
	assert.Nil(t, token)

	advance, token, err = scanLines([]byte("Hits 10\r\nMisses"), false)
	require.NoError(t, err)
	assert.Equal(t, 9, advance)
	assert.Equal(t, "Hits 10", string(token))
}

func TestTokenizeByteOrderMark(t *testing.T) {
	doc, err := Tokenize(append([]byte{0xEF, 0xBB, 0xBF}, []byte("I-Cache statistics:\n")...))
	require.NoError(t, err)
	require.Len(t, doc, 1)
	assert.Equal(t, "I-Cache", doc[0][0])
}

func TestTokenizeInvalidUTF8(t *testing.T) {
	doc, err := Tokenize([]byte("bad \xff byte\n"))
	require.NoError(t, err)
	require.Len(t, doc, 1)
	assert.Equal(t, Line{"bad", "�", "byte"}, doc[0])
}

func TestTokenizeEmpty(t *testing.T) {
	doc, err := Tokenize(nil)
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestLineEqual(t *testing.T) {
	assert.True(t, ParseLine("L1 D-Cache statistics:").Equal(Line{"L1", "D-Cache", "statistics:"}))
	assert.False(t, ParseLine("L1 D-Cache statistics:").Equal(ParseLine("L2 D-Cache statistics:")))
	assert.False(t, ParseLine("a b").Equal(ParseLine("a b c")))
	assert.True(t, Line(nil).Equal(Line{}))
}

func TestDocumentString(t *testing.T) {
	doc := Document{{"a", "b"}, {"c"}}
	assert.Equal(t, "a b\nc\n", doc.String())
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test01")
	require.NoError(t, os.WriteFile(path, []byte(icacheReport), 0644))

	doc, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, doc, 8)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, os.IsNotExist(err))
}
