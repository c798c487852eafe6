package cpufreq_test

import (
	"testing"

	"codeberg.org/mutker/cpufreqctl/internal/cpufreq"
	"codeberg.org/mutker/cpufreqctl/internal/errors"
	"codeberg.org/mutker/cpufreqctl/internal/logger"
	"codeberg.org/mutker/cpufreqctl/internal/sysfs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const root = sysfs.CPURoot

func setupCPUs(t *testing.T, cpus map[int]map[string]string, global map[string]string) afero.Fs {
	t.Helper()

	mem := afero.NewMemMapFs()
	for cpu, attrs := range cpus {
		for attr, value := range attrs {
			require.NoError(t, afero.WriteFile(mem, sysfs.CPUAttr(root, cpu, attr), []byte(value+"\n"), 0o644))
		}
	}
	for rel, value := range global {
		require.NoError(t, afero.WriteFile(mem, root+"/"+rel, []byte(value+"\n"), 0o644))
	}

	return mem
}

func uniformCPUs(n int) map[int]map[string]string {
	cpus := make(map[int]map[string]string, n)
	for i := 0; i < n; i++ {
		cpus[i] = map[string]string{
			"scaling_governor": "powersave",
			"scaling_setspeed": "<unsupported>",
			"scaling_driver":   "acpi-cpufreq",
			"scaling_cur_freq": "1600000",
		}
	}
	cpus[0]["scaling_available_governors"] = "conservative ondemand userspace powersave performance schedutil"
	cpus[0]["scaling_available_frequencies"] = "2200000 1800000 1600000 800000"

	return cpus
}

func read(t *testing.T, mem afero.Fs, path string) string {
	t.Helper()
	value, err := sysfs.New(mem).Read(path)
	require.NoError(t, err)
	return value
}

func TestCatalogAvailable(t *testing.T) {
	mem := setupCPUs(t, uniformCPUs(2), nil)
	catalog := cpufreq.NewCatalog(sysfs.New(mem), root, 2)

	govs, err := catalog.AvailableGovernors()
	require.NoError(t, err)
	assert.Equal(t, []string{"conservative", "ondemand", "userspace", "powersave", "performance", "schedutil"}, govs)

	freqs, err := catalog.AvailableFrequencies()
	require.NoError(t, err)
	assert.Equal(t, []uint32{2200000, 1800000, 1600000, 800000}, freqs)

	// cached: removing the attribute does not change the answer
	require.NoError(t, mem.Remove(sysfs.CPUAttr(root, 0, "scaling_available_governors")))
	govs, err = catalog.AvailableGovernors()
	require.NoError(t, err)
	assert.Len(t, govs, 6)
}

func TestCatalogReadErrors(t *testing.T) {
	catalog := cpufreq.NewCatalog(sysfs.New(afero.NewMemMapFs()), root, 1)

	_, err := catalog.AvailableGovernors()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCapabilityRead, errors.CodeOf(err))
	failure, ok := errors.DataOf[cpufreq.ReadFailure](err)
	require.True(t, ok)
	assert.Equal(t, sysfs.CPUAttr(root, 0, "scaling_available_governors"), failure.Path)

	_, err = catalog.AvailableFrequencies()
	assert.Equal(t, errors.ErrCapabilityRead, errors.CodeOf(err))
}

func TestCatalogBadFrequency(t *testing.T) {
	mem := setupCPUs(t, map[int]map[string]string{
		0: {"scaling_available_frequencies": "2200000 fast"},
	}, nil)

	_, err := cpufreq.NewCatalog(sysfs.New(mem), root, 1).AvailableFrequencies()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCapabilityRead, errors.CodeOf(err))
}

func TestCatalogCPUs(t *testing.T) {
	mem := setupCPUs(t, uniformCPUs(3), nil)

	infos := cpufreq.NewCatalog(sysfs.New(mem), root, 3).CPUs()
	require.Len(t, infos, 3)
	for i, info := range infos {
		assert.Equal(t, i, info.Index)
		assert.Equal(t, "powersave", info.Governor)
		assert.Equal(t, "acpi-cpufreq", info.Driver)
		assert.Equal(t, uint32(1600000), info.Frequency)
	}
}

func TestApplyGovernor(t *testing.T) {
	mem := setupCPUs(t, uniformCPUs(4), nil)
	act := cpufreq.NewActuator(sysfs.New(mem), root, 4, logger.Default())

	require.NoError(t, act.ApplyGovernor("performance"))
	for i := 0; i < 4; i++ {
		assert.Equal(t, "performance", read(t, mem, sysfs.CPUAttr(root, i, "scaling_governor")))
	}

	// idempotent
	require.NoError(t, act.ApplyGovernor("performance"))
	for i := 0; i < 4; i++ {
		assert.Equal(t, "performance", read(t, mem, sysfs.CPUAttr(root, i, "scaling_governor")))
	}
}

func TestApplyGovernorFailFast(t *testing.T) {
	cpus := uniformCPUs(4)
	delete(cpus[2], "scaling_governor")
	mem := setupCPUs(t, cpus, nil)
	act := cpufreq.NewActuator(sysfs.New(mem), root, 4, logger.Default())

	err := act.ApplyGovernor("performance")
	require.Error(t, err)
	assert.Equal(t, errors.ErrActuation, errors.CodeOf(err))

	failure, ok := errors.DataOf[cpufreq.WriteFailure](err)
	require.True(t, ok)
	assert.Equal(t, 2, failure.CPU)
	assert.Equal(t, sysfs.CPUAttr(root, 2, "scaling_governor"), failure.Path)

	// no rollback, no further writes
	assert.Equal(t, "performance", read(t, mem, sysfs.CPUAttr(root, 0, "scaling_governor")))
	assert.Equal(t, "performance", read(t, mem, sysfs.CPUAttr(root, 1, "scaling_governor")))
	assert.Equal(t, "powersave", read(t, mem, sysfs.CPUAttr(root, 3, "scaling_governor")))
}

func TestApplyGovernorPermissionDenied(t *testing.T) {
	mem := setupCPUs(t, uniformCPUs(2), nil)
	act := cpufreq.NewActuator(sysfs.New(afero.NewReadOnlyFs(mem)), root, 2, logger.Default())

	err := act.ApplyGovernor("performance")
	require.Error(t, err)
	assert.Equal(t, errors.ErrPermissionDenied, errors.CodeOf(err))
}

func TestApplyFrequency(t *testing.T) {
	mem := setupCPUs(t, uniformCPUs(2), nil)
	act := cpufreq.NewActuator(sysfs.New(mem), root, 2, logger.Default())

	require.NoError(t, act.ApplyFrequency(2200000))
	assert.Equal(t, "2200000", read(t, mem, sysfs.CPUAttr(root, 0, "scaling_setspeed")))
	assert.Equal(t, "2200000", read(t, mem, sysfs.CPUAttr(root, 1, "scaling_setspeed")))
}

func TestApplyTurboIntelPstate(t *testing.T) {
	mem := setupCPUs(t, uniformCPUs(1), map[string]string{
		"intel_pstate/no_turbo": "1",
		"cpufreq/boost":         "0",
	})
	act := cpufreq.NewActuator(sysfs.New(mem), root, 1, logger.Default())
	assert.Equal(t, cpufreq.TurboOff, act.TurboState())

	require.NoError(t, act.ApplyTurbo(true))
	assert.Equal(t, "0", read(t, mem, root+"/intel_pstate/no_turbo"))
	assert.Equal(t, "0", read(t, mem, root+"/cpufreq/boost"))
	assert.Equal(t, cpufreq.TurboOn, act.TurboState())

	require.NoError(t, act.ApplyTurbo(false))
	assert.Equal(t, "1", read(t, mem, root+"/intel_pstate/no_turbo"))
	assert.Equal(t, cpufreq.TurboOff, act.TurboState())
}

func TestApplyTurboBoost(t *testing.T) {
	mem := setupCPUs(t, uniformCPUs(1), map[string]string{"cpufreq/boost": "0"})
	act := cpufreq.NewActuator(sysfs.New(mem), root, 1, logger.Default())

	require.NoError(t, act.ApplyTurbo(true))
	assert.Equal(t, "1", read(t, mem, root+"/cpufreq/boost"))
	assert.Equal(t, cpufreq.TurboOn, act.TurboState())

	require.NoError(t, act.ApplyTurbo(false))
	assert.Equal(t, "0", read(t, mem, root+"/cpufreq/boost"))
}

func TestApplyTurboUnsupported(t *testing.T) {
	mem := setupCPUs(t, uniformCPUs(1), nil)
	act := cpufreq.NewActuator(sysfs.New(mem), root, 1, logger.Default())

	err := act.ApplyTurbo(true)
	require.Error(t, err)
	assert.Equal(t, errors.ErrTurboUnsupported, errors.CodeOf(err))
	assert.Equal(t, cpufreq.TurboNotSupported, act.TurboState())
	assert.Equal(t, "not supported", act.TurboState().String())
}

func TestWriteFailureString(t *testing.T) {
	perCPU := cpufreq.WriteFailure{CPU: 3, Path: "/sys/x/scaling_governor", Value: "performance"}
	assert.Equal(t, "cpu3: writing performance to /sys/x/scaling_governor", perCPU.String())

	global := cpufreq.WriteFailure{CPU: -1, Path: "/sys/x/boost", Value: "1"}
	assert.Equal(t, "writing 1 to /sys/x/boost", global.String())
}
