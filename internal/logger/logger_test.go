package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		development bool
		wantErr     bool
	}{
		{name: "debug production", level: "debug"},
		{name: "info production", level: "info"},
		{name: "warn development", level: "warn", development: true},
		{name: "error development", level: "error", development: true},
		{name: "invalid level", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLogger(tt.level, tt.development)
			if tt.wantErr {
				require.Error(t, err)
				require.Nil(t, l)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, l.SugaredLogger)
			require.Equal(t, tt.level, l.GetLevel())
		})
	}
}

func TestLogger_SetLevel(t *testing.T) {
	l, err := NewLogger("warn", false)
	require.NoError(t, err)

	require.False(t, l.atomicLevel.Enabled(zapcore.InfoLevel))
	require.True(t, l.atomicLevel.Enabled(zapcore.WarnLevel))

	require.NoError(t, l.SetLevel("debug"))
	require.Equal(t, "debug", l.GetLevel())
	require.True(t, l.atomicLevel.Enabled(zapcore.DebugLevel))

	require.Error(t, l.SetLevel("verbose"))
	require.Equal(t, "debug", l.GetLevel())
}

func TestLogger_ChildrenShareLevel(t *testing.T) {
	base, err := NewLogger("info", false)
	require.NoError(t, err)
	require.Equal(t, "", base.GetComponent())

	supervisor := base.WithComponent("supervisor")
	crawler := base.WithComponent("crawler")
	polygon := crawler.WithNetwork(137, "polygon")

	require.Equal(t, "supervisor", supervisor.GetComponent())
	require.Equal(t, "crawler", polygon.GetComponent())

	require.NoError(t, base.SetLevel("error"))
	require.Equal(t, "error", supervisor.GetLevel())
	require.Equal(t, "error", polygon.GetLevel())
}

func TestNewComponentLogger(t *testing.T) {
	l := NewComponentLogger("rpc", "debug", true)
	require.Equal(t, "rpc", l.GetComponent())
	require.Equal(t, "debug", l.GetLevel())

	require.Panics(t, func() {
		_ = NewComponentLogger("rpc", "invalid", false)
	})
}

type stubLoggingConfig struct {
	defaultLevel    string
	development     bool
	componentLevels map[string]string
}

func (s *stubLoggingConfig) GetComponentLevel(component string) string {
	if level, ok := s.componentLevels[component]; ok {
		return level
	}
	return s.defaultLevel
}

func (s *stubLoggingConfig) GetDefaultLevel() string { return s.defaultLevel }

func (s *stubLoggingConfig) IsDevelopment() bool { return s.development }

func TestNewComponentLoggerFromConfig(t *testing.T) {
	tests := []struct {
		name          string
		component     string
		config        LoggingConfig
		expectedLevel string
	}{
		{
			name:      "component override",
			component: "crawler",
			config: &stubLoggingConfig{
				defaultLevel:    "info",
				componentLevels: map[string]string{"crawler": "debug"},
			},
			expectedLevel: "debug",
		},
		{
			name:          "falls back to default",
			component:     "supervisor",
			config:        &stubLoggingConfig{defaultLevel: "warn", development: true},
			expectedLevel: "warn",
		},
		{
			name:          "nil config",
			component:     "maintenance",
			config:        nil,
			expectedLevel: "info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewComponentLoggerFromConfig(tt.component, tt.config)
			require.Equal(t, tt.component, l.GetComponent())
			require.Equal(t, tt.expectedLevel, l.GetLevel())
		})
	}
}

func TestNewNopLogger(t *testing.T) {
	l := NewNopLogger()
	require.NotNil(t, l.SugaredLogger)

	l.Debugw("nothing", "k", "v")
	l.Errorw("nothing")
	require.NoError(t, l.SetLevel("debug"))
}
