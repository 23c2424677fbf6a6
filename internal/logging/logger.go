package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень из конфигурации ("debug", "INFO", ...).
// Неизвестные значения дают INFO.
func ParseLevel(s string) LogLevel {
	switch s {
	case "trace", "TRACE":
		return TRACE
	case "debug", "DEBUG":
		return DEBUG
	case "warn", "WARN", "warning":
		return WARN
	case "error", "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Options настраивает логгер компонента.
type Options struct {
	Dir            string   // каталог для файлов логов, пусто: только консоль
	ConsoleLevel   LogLevel // минимальный уровень для консоли
	FileLevel      LogLevel // минимальный уровень для файла
	JSON           bool     // JSON-формат вместо консольного
	DisableConsole bool     // полностью отключить вывод в stdout (тесты)
}

// DefaultOptions возвращает настройки по умолчанию: консоль INFO, файл DEBUG в logs/.
func DefaultOptions() Options {
	return Options{
		Dir:          "logs",
		ConsoleLevel: INFO,
		FileLevel:    DEBUG,
	}
}

// Logger пишет сообщения компонента в консоль и (опционально) в файл.
// Внутри два zap-логгера, как в исходной схеме console/file.
type Logger struct {
	component       string
	consoleLogger   *zap.SugaredLogger
	fileLogger      *zap.SugaredLogger
	file            *os.File
	mu              sync.RWMutex
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
}

// NewLogger создает логгер для компонента
func NewLogger(component string, opts Options) (*Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	newEncoder := func() zapcore.Encoder {
		if opts.JSON {
			return zapcore.NewJSONEncoder(encoderCfg)
		}
		return zapcore.NewConsoleEncoder(encoderCfg)
	}

	l := &Logger{
		component:       component,
		minConsoleLevel: opts.ConsoleLevel,
		minFileLevel:    opts.FileLevel,
	}

	if !opts.DisableConsole {
		core := zapcore.NewCore(newEncoder(), zapcore.Lock(os.Stdout), zapcore.DebugLevel)
		l.consoleLogger = zap.New(core).Named(component).Sugar()
	}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log dir %s: %w", opts.Dir, err)
		}

		timestamp := time.Now().Format("2006-01-02_15-04-05")
		filename := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.log", component, timestamp))
		file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}

		core := zapcore.NewCore(newEncoder(), zapcore.AddSync(file), zapcore.DebugLevel)
		l.file = file
		l.fileLogger = zap.New(core).Named(component).Sugar()
	}

	return l, nil
}

// Component возвращает имя компонента
func (l *Logger) Component() string {
	return l.component
}

// SetLevels меняет пороги консоли и файла
func (l *Logger) SetLevels(consoleLevel, fileLevel LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minConsoleLevel = consoleLevel
	l.minFileLevel = fileLevel
}

func (l *Logger) Trace(format string, args ...interface{}) { l.log(TRACE, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }
func (l *Logger) Info(format string, args ...interface{}) { l.log(INFO, format, args...) }
func (l *Logger) Warn(format string, args ...interface{}) { l.log(WARN, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if l == nil {
		return
	}

	l.mu.RLock()
	consoleMin, fileMin := l.minConsoleLevel, l.minFileLevel
	l.mu.RUnlock()

	if l.consoleLogger != nil && level >= consoleMin {
		write(l.consoleLogger, level, format, args...)
	}
	if l.fileLogger != nil && level >= fileMin {
		write(l.fileLogger, level, format, args...)
	}
}

func write(s *zap.SugaredLogger, level LogLevel, format string, args ...interface{}) {
	switch level {
	case TRACE:
		s.Debugf("[TRACE] "+format, args...)
	case DEBUG:
		s.Debugf(format, args...)
	case INFO:
		s.Infof(format, args...)
	case WARN:
		s.Warnf(format, args...)
	default:
		s.Errorf(format, args...)
	}
}

// Close сбрасывает буферы и закрывает файл
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	if l.consoleLogger != nil {
		_ = l.consoleLogger.Sync()
	}
	if l.fileLogger != nil {
		_ = l.fileLogger.Sync()
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Глобальный логгер процесса. До InitDefaultLogger пишет только в консоль.
var (
	defaultMu     sync.RWMutex
	defaultLogger = mustConsoleLogger("server")
)

func mustConsoleLogger(component string) *Logger {
	l, err := NewLogger(component, Options{ConsoleLevel: INFO, FileLevel: ERROR})
	if err != nil {
		panic(err)
	}
	return l
}

// InitDefaultLogger инициализирует глобальный логгер с файлом в каталоге opts.Dir
func InitDefaultLogger(component string, opts Options) error {
	l, err := NewLogger(component, opts)
	if err != nil {
		return err
	}

	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
	return nil
}

// CloseDefaultLogger закрывает глобальный логгер и все логгеры компонентов
func CloseDefaultLogger() {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	_ = l.Close()
	_ = GetLoggerManager().CloseAll()
}

func current() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Trace логирует сообщение уровня TRACE
func Trace(format string, args ...interface{}) { current().Trace(format, args...) }

// Debug логирует сообщение уровня DEBUG
func Debug(format string, args ...interface{}) { current().Debug(format, args...) }

// Info логирует сообщение уровня INFO
func Info(format string, args ...interface{}) { current().Info(format, args...) }

// Warn логирует сообщение уровня WARN
func Warn(format string, args ...interface{}) { current().Warn(format, args...) }

// Error логирует сообщение уровня ERROR
func Error(format string, args ...interface{}) { current().Error(format, args...) }
