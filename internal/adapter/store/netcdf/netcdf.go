// Package netcdf loads and saves gridded surface current datasets in NetCDF
// format.
package netcdf

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/currents-api/internal/adapter/interp"
	"go.ngs.io/currents-api/internal/domain"
)

// Candidate variable names tried in order. Surface current products disagree
// on naming (HFRNet uses u/v, CMEMS uses uo/vo, some THREDDS exports water_u).
var (
	timeNames = []string{"time", "t"}
	latNames  = []string{"lat", "latitude", "y"}
	lonNames  = []string{"lon", "longitude", "x"}
	uNames    = []string{"U", "u", "water_u", "uo"}
	vNames    = []string{"V", "v", "water_v", "vo"}
)

// Store loads current datasets from local NetCDF files.
type Store struct{}

// NewStore creates a local NetCDF dataset store.
func NewStore() *Store {
	return &Store{}
}

// Load reads the NetCDF file at the given path into a dataset.
func (s *Store) Load(ctx context.Context, locator string) (*domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(locator)
}

// Save writes the dataset to a local NetCDF file.
func (s *Store) Save(ctx context.Context, path string, ds *domain.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return SaveFile(path, ds)
}

// LoadFile reads a gridded U/V current dataset from a NetCDF file.
func LoadFile(path string) (*domain.Dataset, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	timeVar, timeName, err := findVar(nc, timeNames)
	if err != nil {
		return nil, fmt.Errorf("time variable not found (tried: %v)", timeNames)
	}
	latVar, latName, err := findVar(nc, latNames)
	if err != nil {
		return nil, fmt.Errorf("latitude variable not found (tried: %v)", latNames)
	}
	lonVar, lonName, err := findVar(nc, lonNames)
	if err != nil {
		return nil, fmt.Errorf("longitude variable not found (tried: %v)", lonNames)
	}

	rawTimes, err := readFloat64Var(timeVar)
	if err != nil {
		return nil, fmt.Errorf("failed to read time axis: %w", err)
	}
	times, err := decodeTimes(rawTimes, readStringAttr(timeVar, "units"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode time axis: %w", err)
	}
	lats, err := readFloat64Var(latVar)
	if err != nil {
		return nil, fmt.Errorf("failed to read latitude axis: %w", err)
	}
	lons, err := readFloat64Var(lonVar)
	if err != nil {
		return nil, fmt.Errorf("failed to read longitude axis: %w", err)
	}
	if err := interp.ValidateAxis(lats); err != nil {
		return nil, fmt.Errorf("latitude axis: %w", err)
	}
	if err := interp.ValidateAxis(lons); err != nil {
		return nil, fmt.Errorf("longitude axis: %w", err)
	}

	nt, ny, nx := len(times), len(lats), len(lons)

	uVar, uName, err := findVar(nc, uNames)
	if err != nil {
		return nil, fmt.Errorf("U variable not found (tried: %v)", uNames)
	}
	vVar, vName, err := findVar(nc, vNames)
	if err != nil {
		return nil, fmt.Errorf("V variable not found (tried: %v)", vNames)
	}

	u, err := readField3D(uVar, nt, ny, nx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", uName, err)
	}
	v, err := readField3D(vVar, nt, ny, nx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", vName, err)
	}

	ds := &domain.Dataset{
		Coords: domain.Coordinates{Times: times, Lats: lats, Lons: lons},
		U:      u,
		V:      v,
		Attrs:  readGlobalAttrs(nc),
		UAttrs: readVarAttrs(uVar),
		VAttrs: readVarAttrs(vVar),
	}

	ds.Extra, err = readExtraVars(nc, map[string]bool{
		timeName: true, latName: true, lonName: true, uName: true, vName: true,
	}, nt, ny, nx)
	if err != nil {
		return nil, fmt.Errorf("failed to read extra variables: %w", err)
	}

	if err := ds.Coords.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grid: %w", err)
	}
	return ds, nil
}

// SaveFile writes a dataset to a NetCDF file, including the pass-through
// variable and attribute envelope.
func SaveFile(path string, ds *domain.Dataset) error {
	nc, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		return fmt.Errorf("failed to create NetCDF file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	nt, ny, nx := ds.Coords.Shape()
	timeDim, err := nc.AddDim("time", uint64(nt))
	if err != nil {
		return fmt.Errorf("failed to add time dimension: %w", err)
	}
	latDim, err := nc.AddDim("lat", uint64(ny))
	if err != nil {
		return fmt.Errorf("failed to add lat dimension: %w", err)
	}
	lonDim, err := nc.AddDim("lon", uint64(nx))
	if err != nil {
		return fmt.Errorf("failed to add lon dimension: %w", err)
	}
	dimsByName := map[string]netcdf.Dim{"time": timeDim, "lat": latDim, "lon": lonDim}

	timeVar, err := nc.AddVar("time", netcdf.DOUBLE, []netcdf.Dim{timeDim})
	if err != nil {
		return fmt.Errorf("failed to add time variable: %w", err)
	}
	if err := timeVar.Attr("units").WriteBytes([]byte(timeUnits)); err != nil {
		return fmt.Errorf("failed to write time units: %w", err)
	}
	latVar, err := nc.AddVar("lat", netcdf.DOUBLE, []netcdf.Dim{latDim})
	if err != nil {
		return fmt.Errorf("failed to add lat variable: %w", err)
	}
	lonVar, err := nc.AddVar("lon", netcdf.DOUBLE, []netcdf.Dim{lonDim})
	if err != nil {
		return fmt.Errorf("failed to add lon variable: %w", err)
	}

	uvDims := []netcdf.Dim{timeDim, latDim, lonDim}
	uVar, err := nc.AddVar("U", netcdf.DOUBLE, uvDims)
	if err != nil {
		return fmt.Errorf("failed to add U variable: %w", err)
	}
	vVar, err := nc.AddVar("V", netcdf.DOUBLE, uvDims)
	if err != nil {
		return fmt.Errorf("failed to add V variable: %w", err)
	}
	if err := writeAttrs(uVar, ds.UAttrs); err != nil {
		return fmt.Errorf("failed to write U attributes: %w", err)
	}
	if err := writeAttrs(vVar, ds.VAttrs); err != nil {
		return fmt.Errorf("failed to write V attributes: %w", err)
	}

	extraVars := make([]netcdf.Var, len(ds.Extra))
	for i, ev := range ds.Extra {
		dims := make([]netcdf.Dim, 0, len(ev.Dims))
		for _, name := range ev.Dims {
			dim, ok := dimsByName[name]
			if !ok {
				return fmt.Errorf("extra variable %s uses unknown dimension %s", ev.Name, name)
			}
			dims = append(dims, dim)
		}
		nv, err := nc.AddVar(ev.Name, netcdf.DOUBLE, dims)
		if err != nil {
			return fmt.Errorf("failed to add variable %s: %w", ev.Name, err)
		}
		if err := writeAttrs(nv, ev.Attrs); err != nil {
			return fmt.Errorf("failed to write %s attributes: %w", ev.Name, err)
		}
		extraVars[i] = nv
	}

	for name, val := range ds.Attrs {
		if err := nc.Attr(name).WriteBytes([]byte(val)); err != nil {
			return fmt.Errorf("failed to write global attribute %s: %w", name, err)
		}
	}

	if err := nc.EndDef(); err != nil {
		return fmt.Errorf("failed to end define mode: %w", err)
	}

	if err := timeVar.WriteFloat64s(encodeTimes(ds.Coords.Times)); err != nil {
		return fmt.Errorf("failed to write time axis: %w", err)
	}
	if err := latVar.WriteFloat64s(ds.Coords.Lats); err != nil {
		return fmt.Errorf("failed to write latitude axis: %w", err)
	}
	if err := lonVar.WriteFloat64s(ds.Coords.Lons); err != nil {
		return fmt.Errorf("failed to write longitude axis: %w", err)
	}
	if err := uVar.WriteFloat64s(ds.U.Values()); err != nil {
		return fmt.Errorf("failed to write U: %w", err)
	}
	if err := vVar.WriteFloat64s(ds.V.Values()); err != nil {
		return fmt.Errorf("failed to write V: %w", err)
	}
	for i, ev := range ds.Extra {
		if err := extraVars[i].WriteFloat64s(ev.Values); err != nil {
			return fmt.Errorf("failed to write variable %s: %w", ev.Name, err)
		}
	}
	return nil
}

// timeUnits is the CF units string written on save.
const timeUnits = "seconds since 1970-01-01 00:00:00"

func findVar(nc netcdf.Dataset, candidates []string) (netcdf.Var, string, error) {
	for _, name := range candidates {
		if v, err := nc.Var(name); err == nil {
			return v, name, nil
		}
	}
	return netcdf.Var{}, "", fmt.Errorf("no variable found")
}

// decodeTimes converts a raw numeric time axis into instants using a CF-style
// units attribute ("seconds since 1970-01-01 00:00:00"). A missing or
// unrecognized units string defaults to seconds since the Unix epoch.
func decodeTimes(raw []float64, units string) ([]time.Time, error) {
	step := time.Second
	epoch := time.Unix(0, 0).UTC()

	if units != "" {
		parts := strings.SplitN(units, " since ", 2)
		if len(parts) == 2 {
			switch strings.ToLower(strings.TrimSpace(parts[0])) {
			case "seconds", "second", "s":
				step = time.Second
			case "minutes", "minute", "min":
				step = time.Minute
			case "hours", "hour", "h":
				step = time.Hour
			case "days", "day", "d":
				step = 24 * time.Hour
			default:
				return nil, fmt.Errorf("unsupported time unit %q", parts[0])
			}
			ref, err := parseEpoch(strings.TrimSpace(parts[1]))
			if err != nil {
				return nil, err
			}
			epoch = ref
		}
	}

	times := make([]time.Time, len(raw))
	for i, val := range raw {
		times[i] = epoch.Add(time.Duration(val * float64(step)))
	}
	return times, nil
}

func parseEpoch(s string) (time.Time, error) {
	layouts := []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	// Some products append a zone suffix like "0:00" or "UTC".
	s = strings.TrimSuffix(strings.TrimSuffix(s, " UTC"), " 0:00")
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time epoch %q", s)
}

func encodeTimes(times []time.Time) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = float64(t.Unix())
	}
	return out
}

// readField3D reads a (time, lat, lon) variable, replacing fill values with
// NaN. NaN is the missing-data marker for current fields; flattening fills to
// zero would silently mark cells as "no data" under the zero-magnitude rule.
func readField3D(v netcdf.Var, nt, ny, nx int) (*domain.Field3D, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 3 {
		return nil, fmt.Errorf("expected 3D data, got %dD", len(dims))
	}
	for i, want := range []int{nt, ny, nx} {
		n, err := dims[i].Len()
		if err != nil {
			return nil, fmt.Errorf("failed to get dim%d length: %w", i, err)
		}
		if n != uint64(want) {
			return nil, fmt.Errorf("dimension mismatch: dim%d is %d, expected %d", i, n, want)
		}
	}

	flat, err := readFlatFloat64(v, nt*ny*nx)
	if err != nil {
		return nil, err
	}
	if fv, ok := getFillValue(v); ok {
		for i := range flat {
			if flat[i] == fv {
				flat[i] = math.NaN()
			}
		}
	}
	return domain.NewField3DFrom(flat, nt, ny, nx)
}

// readExtraVars collects every remaining variable whose dimensions are drawn
// from the time/lat/lon grid, for pass-through into the output dataset.
func readExtraVars(nc netcdf.Dataset, consumed map[string]bool, nt, ny, nx int) ([]domain.Variable, error) {
	nvars, err := nc.NVars()
	if err != nil {
		return nil, err
	}
	sizeByDim := map[string]int{"time": nt, "lat": ny, "lon": nx}

	var extra []domain.Variable
	for id := 0; id < nvars; id++ {
		v := nc.VarN(id)
		name, err := v.Name()
		if err != nil {
			return nil, err
		}
		if consumed[name] {
			continue
		}
		dims, err := v.Dims()
		if err != nil {
			return nil, err
		}
		dimNames := make([]string, 0, len(dims))
		total := 1
		gridded := true
		for _, d := range dims {
			dn, err := d.Name()
			if err != nil {
				return nil, err
			}
			size, ok := sizeByDim[canonicalDim(dn)]
			if !ok {
				gridded = false
				break
			}
			dimNames = append(dimNames, canonicalDim(dn))
			total *= size
		}
		if !gridded {
			// Variables on foreign dimensions (station lists, bounds) are
			// dropped rather than guessed at.
			continue
		}
		flat, err := readFlatFloat64(v, total)
		if err != nil {
			// Non-numeric variables are not carried.
			continue
		}
		extra = append(extra, domain.Variable{
			Name:   name,
			Dims:   dimNames,
			Values: flat,
			Attrs:  readVarAttrs(v),
		})
	}
	return extra, nil
}

func canonicalDim(name string) string {
	switch name {
	case "time", "t":
		return "time"
	case "lat", "latitude", "y":
		return "lat"
	case "lon", "longitude", "x":
		return "lon"
	}
	return name
}

// Attribute names carried through for the dataset and its variables.
var passthroughAttrs = []string{
	"units", "long_name", "standard_name", "title", "institution",
	"source", "history", "comment", "references",
}

func readGlobalAttrs(nc netcdf.Dataset) map[string]string {
	attrs := make(map[string]string)
	for _, name := range passthroughAttrs {
		if val := readStringGlobalAttr(nc, name); val != "" {
			attrs[name] = val
		}
	}
	return attrs
}

func readVarAttrs(v netcdf.Var) map[string]string {
	attrs := make(map[string]string)
	for _, name := range passthroughAttrs {
		if val := readStringAttr(v, name); val != "" {
			attrs[name] = val
		}
	}
	return attrs
}

func readStringAttr(v netcdf.Var, name string) string {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return ""
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		return ""
	}
	return strings.TrimRight(string(buf), "\x00")
}

func readStringGlobalAttr(nc netcdf.Dataset, name string) string {
	a := nc.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return ""
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		return ""
	}
	return strings.TrimRight(string(buf), "\x00")
}

func writeAttrs(v netcdf.Var, attrs map[string]string) error {
	for name, val := range attrs {
		if err := v.Attr(name).WriteBytes([]byte(val)); err != nil {
			return err
		}
	}
	return nil
}

// getFillValue returns the _FillValue or missing_value attribute if present as float64.
func getFillValue(v netcdf.Var) (float64, bool) {
	for _, name := range []string{"_FillValue", "missing_value"} {
		a := v.Attr(name)
		if a == (netcdf.Attr{}) {
			continue
		}
		if n, err := a.Len(); err == nil && n > 0 {
			buf64 := make([]float64, 1)
			if err := a.ReadFloat64s(buf64); err == nil {
				return buf64[0], true
			}
			buf32 := make([]float32, 1)
			if err := a.ReadFloat32s(buf32); err == nil {
				return float64(buf32[0]), true
			}
			bufi := make([]int32, 1)
			if err := a.ReadInt32s(bufi); err == nil {
				return float64(bufi[0]), true
			}
		}
	}
	return 0, false
}

// readFloat64Var reads a 1D float64 array from a NetCDF variable.
func readFloat64Var(v netcdf.Var) ([]float64, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("expected 1D variable, got %dD", len(dims))
	}
	length, err := dims[0].Len()
	if err != nil {
		return nil, err
	}
	return readFlatFloat64(v, int(length))
}

// readFlatFloat64 reads a variable of known total length as float64,
// converting from the on-disk numeric type.
func readFlatFloat64(v netcdf.Var, total int) ([]float64, error) {
	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get var type: %w", err)
	}
	switch t {
	case netcdf.DOUBLE:
		data := make([]float64, total)
		if err := v.ReadFloat64s(data); err != nil {
			return nil, err
		}
		return data, nil
	case netcdf.FLOAT:
		tmp := make([]float32, total)
		if err := v.ReadFloat32s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, total)
		for i, val := range tmp {
			out[i] = float64(val)
		}
		return out, nil
	case netcdf.INT:
		tmp := make([]int32, total)
		if err := v.ReadInt32s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, total)
		for i, val := range tmp {
			out[i] = float64(val)
		}
		return out, nil
	case netcdf.SHORT:
		tmp := make([]int16, total)
		if err := v.ReadInt16s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, total)
		for i, val := range tmp {
			out[i] = float64(val)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported var type: %v", t)
	}
}
