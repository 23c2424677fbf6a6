package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, TRACE, ParseLevel("trace"))
	assert.Equal(t, DEBUG, ParseLevel("DEBUG"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel("что-то"), "Неизвестный уровень должен давать INFO")
	assert.Equal(t, "WARN", WARN.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestLogger_WritesFile(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger("game", Options{Dir: dir, FileLevel: DEBUG, ConsoleLevel: ERROR, DisableConsole: true})
	require.NoError(t, err)

	l.Debug("tick %d", 42)
	l.Trace("не должно попасть в файл")
	require.NoError(t, l.Close())

	files, err := filepath.Glob(filepath.Join(dir, "game_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1, "Должен быть создан один файл логов")

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "tick 42")
	assert.NotContains(t, string(data), "не должно попасть")
}

func TestLoggerManager_Components(t *testing.T) {
	lm := &LoggerManager{loggers: make(map[string]*Logger), opts: Options{DisableConsole: true}}

	a := lm.MustGetLogger("storage")
	b := lm.MustGetLogger("storage")
	assert.Same(t, a, b, "Повторный запрос должен вернуть тот же логгер")

	lm.MustGetLogger("api")
	assert.Equal(t, []string{"api", "storage"}, lm.ListComponents())

	assert.NoError(t, lm.SetLogLevel("api", ERROR, ERROR))
	assert.Error(t, lm.SetLogLevel("missing", ERROR, ERROR))
	assert.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.ListComponents())
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("ничего")
		_ = l.Close()
	})
}
