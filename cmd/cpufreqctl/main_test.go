package main

import (
	"context"
	"testing"

	"codeberg.org/mutker/cpufreqctl/internal/cpufreq"
	"codeberg.org/mutker/cpufreqctl/internal/errors"
	"codeberg.org/mutker/cpufreqctl/internal/instance"
	"codeberg.org/mutker/cpufreqctl/internal/logger"
	"codeberg.org/mutker/cpufreqctl/internal/metrics"
	"codeberg.org/mutker/cpufreqctl/internal/sysfs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCPUs = 2

// newTestSystem builds a system over an in-memory cpufreq tree. global
// holds attributes relative to the cpu root, such as intel_pstate/no_turbo.
func newTestSystem(t *testing.T, global map[string]string) (*system, afero.Fs) {
	t.Helper()

	mem := afero.NewMemMapFs()
	write := func(path, value string) {
		require.NoError(t, afero.WriteFile(mem, path, []byte(value+"\n"), 0o644))
	}
	for i := 0; i < testCPUs; i++ {
		write(sysfs.CPUAttr(sysfs.CPURoot, i, "scaling_governor"), "powersave")
	}
	write(sysfs.CPUAttr(sysfs.CPURoot, 0, "scaling_available_governors"), "userspace powersave performance")
	write(sysfs.CPUAttr(sysfs.CPURoot, 0, "scaling_available_frequencies"), "2200000 1600000")
	for rel, value := range global {
		write(sysfs.CPURoot+"/"+rel, value)
	}

	store := sysfs.New(mem)
	return &system{
		cpus:     testCPUs,
		catalog:  cpufreq.NewCatalog(store, sysfs.CPURoot, testCPUs),
		actuator: cpufreq.NewActuator(store, sysfs.CPURoot, testCPUs, logger.Default()),
		self:     appName,
	}, mem
}

func readAttr(t *testing.T, mem afero.Fs, path string) string {
	t.Helper()
	value, err := sysfs.New(mem).Read(path)
	require.NoError(t, err)
	return value
}

type fakeProcess struct {
	pid  int32
	name string
}

func (p fakeProcess) PID() int32            { return p.pid }
func (p fakeProcess) Name() (string, error) { return p.name, nil }

func TestParseFlags(t *testing.T) {
	f, err := parseFlags([]string{"-t", "off", "-c", "/tmp/c.toml", "--log-level", "debug"})
	require.NoError(t, err)
	assert.Equal(t, "off", f.turbo)
	assert.Equal(t, "/tmp/c.toml", f.configPath)
	assert.Equal(t, "debug", f.logLevel)

	f, err = parseFlags([]string{"-lr", "--history", "20"})
	require.NoError(t, err)
	assert.True(t, f.list)
	assert.True(t, f.runOnce)
	assert.Equal(t, 20, f.history)
}

func TestParseFlagsRejectsArguments(t *testing.T) {
	_, err := parseFlags([]string{"extra"})
	assert.Equal(t, errors.ErrInvalidArgument, errors.CodeOf(err))

	_, err = parseFlags([]string{"--history", "0"})
	assert.Equal(t, errors.ErrInvalidArgument, errors.CodeOf(err))
}

func TestParseSwitch(t *testing.T) {
	for _, v := range []string{"true", "1", "on", "YES"} {
		enabled, err := parseSwitch(v)
		require.NoError(t, err, v)
		assert.True(t, enabled, v)
	}
	for _, v := range []string{"false", "0", "off", "no"} {
		enabled, err := parseSwitch(v)
		require.NoError(t, err, v)
		assert.False(t, enabled, v)
	}

	_, err := parseSwitch("sometimes")
	assert.Equal(t, errors.ErrInvalidArgument, errors.CodeOf(err))
}

func TestFailureMessage(t *testing.T) {
	factory := errors.New()

	err := factory.WithData(errors.ErrAlreadyRunning, instance.Running{PID: 4242, Name: appName})
	assert.Equal(t, "cpufreqctl is already running (PID 4242)", failureMessage(err))

	err = factory.Wrap(errors.ErrMainLoop, factory.New(errors.ErrPermissionDenied))
	assert.Contains(t, failureMessage(err), "run as root")

	err = factory.New(metrics.ErrDisabled)
	assert.Contains(t, failureMessage(err), "[metrics] enabled")

	err = factory.New(errors.ErrNoBattery)
	assert.Equal(t, errors.GetErrorMessage(errors.ErrNoBattery), failureMessage(err))
}

func TestSetTurbo(t *testing.T) {
	sys, mem := newTestSystem(t, map[string]string{"intel_pstate/no_turbo": "1"})

	require.NoError(t, setTurbo(sys, "on"))
	assert.Equal(t, "0", readAttr(t, mem, sysfs.CPURoot+"/intel_pstate/no_turbo"))

	require.NoError(t, setTurbo(sys, "false"))
	assert.Equal(t, "1", readAttr(t, mem, sysfs.CPURoot+"/intel_pstate/no_turbo"))
}

func TestSetTurboUnsupportedIsWarning(t *testing.T) {
	sys, _ := newTestSystem(t, nil)

	assert.NoError(t, setTurbo(sys, "true"))
}

func TestSetTurboInvalidValue(t *testing.T) {
	sys, _ := newTestSystem(t, map[string]string{"cpufreq/boost": "0"})

	err := setTurbo(sys, "maybe")
	assert.Equal(t, errors.ErrInvalidArgument, errors.CodeOf(err))
}

func TestSetGovernor(t *testing.T) {
	sys, mem := newTestSystem(t, nil)

	require.NoError(t, setGovernor(sys, "Performance"))
	for i := 0; i < testCPUs; i++ {
		assert.Equal(t, "performance", readAttr(t, mem, sysfs.CPUAttr(sysfs.CPURoot, i, "scaling_governor")))
	}
}

func TestSetGovernorRejectsUnavailable(t *testing.T) {
	sys, mem := newTestSystem(t, nil)

	err := setGovernor(sys, "ondemand")
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidGovernor, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "userspace powersave performance")
	assert.Equal(t, "powersave", readAttr(t, mem, sysfs.CPUAttr(sysfs.CPURoot, 0, "scaling_governor")))
}

func TestServeChecksInstanceBeforeConfig(t *testing.T) {
	sys, _ := newTestSystem(t, nil)
	sys.processes = func(context.Context) ([]instance.Process, error) {
		return []instance.Process{fakeProcess{pid: 4242, name: appName}}, nil
	}

	err := serve(context.Background(), sys, flags{configPath: "/nonexistent/cpufreqctl.toml"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrAlreadyRunning, errors.CodeOf(err))
}

func TestServeReportsConfigWhenAlone(t *testing.T) {
	sys, _ := newTestSystem(t, nil)
	sys.processes = func(context.Context) ([]instance.Process, error) {
		return []instance.Process{fakeProcess{pid: 1, name: "systemd"}}, nil
	}

	err := serve(context.Background(), sys, flags{configPath: "/nonexistent/cpufreqctl.toml"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrMissingConfig, errors.CodeOf(err))
}
