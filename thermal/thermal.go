// Package thermal discovers per-core temperatures from the kernel's
// hwmon sysfs tree, preferring the vendor-specific Intel coretemp and
// AMD k10temp drivers before falling back to a generic hwmon scan.
package thermal

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
)

const (
	hwmonRoot  = "/sys/class/hwmon"
	sanityMinC = 0.0
	sanityMaxC = 150.0
)

// Reader discovers hwmon sensors once and distributes cores evenly
// across them on every read. The package sensor, when one was
// identified, is tracked separately from the per-core sensor list so
// it is never fanned out across cores alongside them.
type Reader struct {
	packagePath string   // sysfs path to the package/Tctl sensor, or ""
	coreSensors []string // sysfs paths to per-core temp*_input files, priority order
	numCores    int
}

// NewReader scans /sys/class/hwmon for coretemp, then k10temp, then any
// other hwmon device exposing temp*_input, in that priority order.
func NewReader() *Reader {
	r := &Reader{}
	r.packagePath, r.coreSensors = discoverSensors()
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		r.numCores = n
	} else {
		r.numCores = len(r.coreSensors)
		if r.numCores == 0 {
			r.numCores = 1
		}
	}
	return r
}

// discoverSensors returns the package sensor path (if classified) and
// the ordered list of per-core sensor paths, per spec.md §4.9's
// coretemp -> k10temp -> generic priority.
func discoverSensors() (packagePath string, coreSensors []string) {
	entries, err := os.ReadDir(hwmonRoot)
	if err != nil {
		return "", nil
	}

	var coretempPkg string
	var coretempCores []string
	var k10Pkg string
	var k10Cores []string
	var generic []string

	for _, e := range entries {
		dir := filepath.Join(hwmonRoot, e.Name())
		nameBytes, err := os.ReadFile(filepath.Join(dir, "name"))
		if err != nil {
			continue
		}
		name := strings.TrimSpace(string(nameBytes))
		switch name {
		case "coretemp":
			pkg, cores := classifyCoretemp(dir)
			if coretempPkg == "" {
				coretempPkg = pkg
			}
			coretempCores = append(coretempCores, cores...)
		case "k10temp":
			pkg, cores := classifyK10temp(dir)
			if k10Pkg == "" {
				k10Pkg = pkg
			}
			k10Cores = append(k10Cores, cores...)
		default:
			generic = append(generic, tempInputsIn(dir)...)
		}
	}

	sort.Strings(coretempCores)
	sort.Strings(k10Cores)
	sort.Strings(generic)

	if len(coretempCores) > 0 || coretempPkg != "" {
		return coretempPkg, coretempCores
	}
	if len(k10Cores) > 0 || k10Pkg != "" {
		return k10Pkg, k10Cores
	}
	if len(generic) > 0 {
		return "", []string{generic[0]}
	}
	return "", nil
}

// classifyCoretemp splits an Intel coretemp hwmon directory's sensors
// into the Package/Die sensor and the per-core sensors, using each
// tempN_label to tell them apart.
func classifyCoretemp(dir string) (pkg string, cores []string) {
	for _, input := range tempInputsIn(dir) {
		label := readLabel(input)
		if strings.Contains(strings.ToLower(label), "package") || strings.Contains(strings.ToLower(label), "die") {
			if pkg == "" {
				pkg = input
			}
			continue
		}
		cores = append(cores, input)
	}
	return pkg, cores
}

// classifyK10temp splits an AMD k10temp hwmon directory's sensors per
// spec.md §4.9: temp1_input is the package sensor (Tctl); temp3_input
// and upward are CCD (per-core) sensors.
func classifyK10temp(dir string) (pkg string, cores []string) {
	for _, input := range tempInputsIn(dir) {
		n := tempInputIndex(input)
		switch {
		case n == 1:
			pkg = input
		case n >= 3:
			cores = append(cores, input)
		}
	}
	return pkg, cores
}

// tempInputIndex extracts N from a ".../tempN_input" path, or 0 if it
// cannot be parsed.
func tempInputIndex(path string) int {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, "_input")
	base = strings.TrimPrefix(base, "temp")
	n, err := strconv.Atoi(base)
	if err != nil {
		return 0
	}
	return n
}

func tempInputsIn(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "temp") && strings.HasSuffix(e.Name(), "_input") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out
}

// readLabel reads the tempN_label sibling of a tempN_input path,
// returning "" if it does not exist.
func readLabel(inputPath string) string {
	labelPath := strings.TrimSuffix(inputPath, "_input") + "_label"
	raw, err := os.ReadFile(labelPath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// readMilliC reads one temp*_input file, returning degrees Celsius.
func readMilliC(path string) (float64, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	milli, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, false
	}
	c := float64(milli) / 1000.0
	if c <= sanityMinC || c >= sanityMaxC {
		return 0, false
	}
	return c, true
}

// CoreTemps returns one temperature reading per logical core, evenly
// distributing cores across the discovered per-core sensors with the
// last sensor absorbing any remainder, per spec.md §4.9. The package
// sensor, if any, is never part of this fan-out.
func (r *Reader) CoreTemps() []float64 {
	if len(r.coreSensors) == 0 {
		return nil
	}
	out := make([]float64, 0, r.numCores)
	coresPerSensor := r.numCores / len(r.coreSensors)
	if coresPerSensor < 1 {
		coresPerSensor = 1
	}
	for i, sensor := range r.coreSensors {
		temp, ok := readMilliC(sensor)
		if !ok {
			continue
		}
		n := coresPerSensor
		if i == len(r.coreSensors)-1 {
			n = r.numCores - len(out)
		}
		for j := 0; j < n; j++ {
			out = append(out, temp)
		}
	}
	return out
}

// PackageTemp returns the classified package/Tctl temperature, or
// 0,false if no sensor could be classified as the package sensor.
func (r *Reader) PackageTemp() (float64, bool) {
	if r.packagePath == "" {
		return 0, false
	}
	return readMilliC(r.packagePath)
}

// MaxCoreTemp returns the highest reading across all cores, or 0 with
// ok=false if no sensors produced a sane reading.
func (r *Reader) MaxCoreTemp() (float64, bool) {
	temps := r.CoreTemps()
	if len(temps) == 0 {
		return 0, false
	}
	max := temps[0]
	for _, t := range temps[1:] {
		if t > max {
			max = t
		}
	}
	return max, true
}
