package words

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbedded(t *testing.T) {
	l, err := Load(Files{})
	require.NoError(t, err)

	answers, allowed := l.Stats()
	assert.Equal(t, answers, l.Len())
	assert.Greater(t, allowed, answers)

	t.Run("first codes map to the first lines", func(t *testing.T) {
		w, err := l.WordForCode(0)
		require.NoError(t, err)
		assert.Equal(t, "cigar", w)

		w, err = l.WordForCode(1)
		require.NoError(t, err)
		assert.Equal(t, "rebut", w)
	})

	t.Run("every answer is a valid guess", func(t *testing.T) {
		for code := 0; code < l.Len(); code++ {
			w, err := l.WordForCode(code)
			require.NoError(t, err)
			assert.True(t, l.IsValidGuess(w), w)
		}
	})

	t.Run("same code yields same word", func(t *testing.T) {
		a, _ := l.WordForCode(42)
		b, _ := l.WordForCode(42)
		assert.Equal(t, a, b)
	})
}

func TestIsValidGuess(t *testing.T) {
	l, err := New([]string{"allot"}, []string{"llama", "crane"})
	require.NoError(t, err)

	assert.True(t, l.IsValidGuess("llama"))
	assert.True(t, l.IsValidGuess("LLAMA"))
	assert.True(t, l.IsValidGuess("AlLoT"))
	assert.False(t, l.IsValidGuess("zzzzz"))
	assert.False(t, l.IsValidGuess("llam"))
	assert.False(t, l.IsValidGuess("llamas"))
	assert.False(t, l.IsValidGuess(""))
}

func TestWordForCodeBounds(t *testing.T) {
	l, err := New([]string{"allot", "crane"}, nil)
	require.NoError(t, err)

	for _, code := range []int{-1, 2, 1000} {
		_, err := l.WordForCode(code)
		assert.ErrorIs(t, err, ErrCodeOutOfRange, "code %d", code)
	}
	w, err := l.WordForCode(1)
	require.NoError(t, err)
	assert.Equal(t, "crane", w)
}

func TestNewRejectsEmptyAnswers(t *testing.T) {
	_, err := New(nil, []string{"crane"})
	assert.ErrorIs(t, err, ErrEmptyAnswers)
}

func TestLoadFromFiles(t *testing.T) {
	dir := t.TempDir()
	answers := filepath.Join(dir, "answers.txt")
	allowed := filepath.Join(dir, "allowed.txt")
	require.NoError(t, os.WriteFile(answers, []byte("Crane\nbad\n  slate \n12345\n"), 0o644))
	require.NoError(t, os.WriteFile(allowed, []byte("trace\n"), 0o644))

	t.Run("both files", func(t *testing.T) {
		l, err := Load(Files{AnswersFile: answers, AllowedFile: allowed})
		require.NoError(t, err)
		assert.Equal(t, 2, l.Len())
		w, _ := l.WordForCode(1)
		assert.Equal(t, "slate", w)
		assert.True(t, l.IsValidGuess("TRACE"))
	})

	t.Run("allowed file only doubles as answers", func(t *testing.T) {
		l, err := Load(Files{AllowedFile: allowed})
		require.NoError(t, err)
		assert.Equal(t, 1, l.Len())
		w, _ := l.WordForCode(0)
		assert.Equal(t, "trace", w)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(Files{AllowedFile: filepath.Join(dir, "nope.txt")})
		assert.Error(t, err)
	})
}
