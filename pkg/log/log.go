package log

import (
	"github.com/sirupsen/logrus"
)

func InitLogs() *logrus.Logger {
	log := logrus.New()

	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return log
}

// PrefixLogger wraps a logrus logger and prepends a fixed subsystem prefix to
// every message. Subsystems of the harness (dut, workflow, power, ...) each
// carry their own prefix so interleaved device logs stay attributable.
type PrefixLogger struct {
	logger *logrus.Logger
	prefix string
}

func NewPrefixLogger(prefix string) *PrefixLogger {
	return &PrefixLogger{
		logger: InitLogs(),
		prefix: prefix,
	}
}

// NewPrefixLoggerWithLogger shares an existing logger between prefixes.
func NewPrefixLoggerWithLogger(prefix string, logger *logrus.Logger) *PrefixLogger {
	return &PrefixLogger{
		logger: logger,
		prefix: prefix,
	}
}

func (p *PrefixLogger) Prefix() string {
	return p.prefix
}

func (p *PrefixLogger) SetLevel(level logrus.Level) {
	p.logger.SetLevel(level)
}

func (p *PrefixLogger) prefixed(args []interface{}) []interface{} {
	if p.prefix == "" {
		return args
	}
	return append([]interface{}{p.prefix + ": "}, args...)
}

func (p *PrefixLogger) format(format string) string {
	if p.prefix == "" {
		return format
	}
	return p.prefix + ": " + format
}

func (p *PrefixLogger) Debug(args ...interface{}) {
	p.logger.Debug(p.prefixed(args)...)
}

func (p *PrefixLogger) Debugf(format string, args ...interface{}) {
	p.logger.Debugf(p.format(format), args...)
}

func (p *PrefixLogger) Info(args ...interface{}) {
	p.logger.Info(p.prefixed(args)...)
}

func (p *PrefixLogger) Infof(format string, args ...interface{}) {
	p.logger.Infof(p.format(format), args...)
}

func (p *PrefixLogger) Warn(args ...interface{}) {
	p.logger.Warn(p.prefixed(args)...)
}

func (p *PrefixLogger) Warnf(format string, args ...interface{}) {
	p.logger.Warnf(p.format(format), args...)
}

func (p *PrefixLogger) Error(args ...interface{}) {
	p.logger.Error(p.prefixed(args)...)
}

func (p *PrefixLogger) Errorf(format string, args ...interface{}) {
	p.logger.Errorf(p.format(format), args...)
}
