package cpufreq

import (
	"strconv"
	"sync"

	"codeberg.org/mutker/cpufreqctl/internal/sysfs"
)

const (
	availGovFile   = "scaling_available_governors"
	availFreqFile  = "scaling_available_frequencies"
	scalingGovFile = "scaling_governor"
	scalingDrvFile = "scaling_driver"
	scalingCurFile = "scaling_cur_freq"
	setSpeedFile   = "scaling_setspeed"
)

// Catalog lists the governors and frequencies the platform supports.
// It reads cpu0 only; all cores are assumed identical.
type Catalog struct {
	store *sysfs.Store
	root  string
	cpus  int

	mu          sync.Mutex
	governors   []string
	frequencies []uint32
}

// NewCatalog returns a Catalog over the cpufreq tree at root.
func NewCatalog(store *sysfs.Store, root string, cpus int) *Catalog {
	return &Catalog{store: store, root: root, cpus: cpus}
}

func (c *Catalog) AvailableGovernors() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.governors != nil {
		return append([]string(nil), c.governors...), nil
	}

	path := sysfs.CPUAttr(c.root, 0, availGovFile)
	govs, err := c.store.Fields(path)
	if err != nil {
		return nil, newReadError(err, path)
	}

	c.governors = govs
	return append([]string(nil), govs...), nil
}

func (c *Catalog) AvailableFrequencies() ([]uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frequencies != nil {
		return append([]uint32(nil), c.frequencies...), nil
	}

	path := sysfs.CPUAttr(c.root, 0, availFreqFile)
	fields, err := c.store.Fields(path)
	if err != nil {
		return nil, newReadError(err, path)
	}

	freqs := make([]uint32, 0, len(fields))
	for _, field := range fields {
		khz, err := strconv.ParseUint(field, 10, 32)
		if err != nil {
			return nil, newReadError(err, path)
		}
		freqs = append(freqs, uint32(khz))
	}

	c.frequencies = freqs
	return append([]uint32(nil), freqs...), nil
}

// CPUs reads governor, driver and current frequency of every CPU.
// Unreadable attributes are left empty.
func (c *Catalog) CPUs() []CPUInfo {
	infos := make([]CPUInfo, 0, c.cpus)
	for i := 0; i < c.cpus; i++ {
		info := CPUInfo{Index: i}
		info.Governor, _ = c.store.Read(sysfs.CPUAttr(c.root, i, scalingGovFile))
		info.Driver, _ = c.store.Read(sysfs.CPUAttr(c.root, i, scalingDrvFile))
		if cur, err := c.store.Read(sysfs.CPUAttr(c.root, i, scalingCurFile)); err == nil {
			if khz, err := strconv.ParseUint(cur, 10, 32); err == nil {
				info.Frequency = uint32(khz)
			}
		}
		infos = append(infos, info)
	}

	return infos
}
