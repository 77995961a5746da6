package benchmark

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	compositionLower = -5.0
	compositionUpper = 5.0
	compositionC     = 2000.0
)

type basicFunc func(z []float64) float64

type compositionSpec struct {
	name   string
	sigma  []float64
	lambda []float64
	funcs  []basicFunc
	// rotated specs load <name>_M_D<dim>.dat; the rest use identity.
	rotated bool
}

var (
	cf1 = compositionSpec{
		name:   "CF1",
		sigma:  []float64{1, 1, 1, 1, 1, 1},
		lambda: []float64{1, 1, 8, 8, 1.0 / 5, 1.0 / 5},
		funcs:  []basicFunc{griewank, griewank, weierstrass, weierstrass, sphere, sphere},
	}
	cf2 = compositionSpec{
		name:   "CF2",
		sigma:  []float64{1, 1, 1, 1, 1, 1, 1, 1},
		lambda: []float64{1, 1, 10, 10, 1.0 / 10, 1.0 / 10, 1.0 / 7, 1.0 / 7},
		funcs:  []basicFunc{rastrigin, rastrigin, weierstrass, weierstrass, griewank, griewank, sphere, sphere},
	}
	cf3 = compositionSpec{
		name:    "CF3",
		sigma:   []float64{1, 1, 2, 2, 2, 2},
		lambda:  []float64{1.0 / 4, 1.0 / 10, 2, 1, 2, 5},
		funcs:   []basicFunc{ef8f2, ef8f2, weierstrass, weierstrass, griewank, griewank},
		rotated: true,
	}
	cf4 = compositionSpec{
		name:    "CF4",
		sigma:   []float64{1, 1, 1, 1, 1, 2, 2, 2},
		lambda:  []float64{4, 1, 4, 1, 1.0 / 10, 1.0 / 5, 1.0 / 10, 1.0 / 40},
		funcs:   []basicFunc{rastrigin, rastrigin, ef8f2, ef8f2, weierstrass, weierstrass, griewank, griewank},
		rotated: true,
	}
)

type composition struct {
	spec   compositionSpec
	dim    int
	optima [][]float64
	// rot[i] is a dim x dim matrix, or nil for identity.
	rot  [][][]float64
	fmax []float64
}

func newCompositionForID(id, dim int, dataDir string) (*composition, error) {
	var spec compositionSpec
	switch id {
	case 11:
		spec = cf1
	case 12:
		spec = cf2
	case 13, 14, 16, 18:
		spec = cf3
	case 15, 17, 19, 20:
		spec = cf4
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFunction, id)
	}
	return newComposition(spec, dim, dataDir)
}

func newComposition(spec compositionSpec, dim int, dataDir string) (*composition, error) {
	n := len(spec.funcs)

	rows, err := readMatrix(filepath.Join(dataDir, "optima.dat"))
	if err != nil {
		return nil, err
	}
	if len(rows) < n {
		return nil, fmt.Errorf("optima.dat: need %d rows for %s, found %d", n, spec.name, len(rows))
	}
	optima := make([][]float64, n)
	for i := 0; i < n; i++ {
		if len(rows[i]) < dim {
			return nil, fmt.Errorf("optima.dat row %d: need %d columns, found %d", i+1, dim, len(rows[i]))
		}
		optima[i] = append([]float64(nil), rows[i][:dim]...)
	}

	rot := make([][][]float64, n)
	if spec.rotated {
		name := fmt.Sprintf("%s_M_D%d.dat", spec.name, dim)
		m, err := readMatrix(filepath.Join(dataDir, name))
		if err != nil {
			return nil, err
		}
		if len(m) < n*dim {
			return nil, fmt.Errorf("%s: need %d rows, found %d", name, n*dim, len(m))
		}
		for i := 0; i < n; i++ {
			block := m[i*dim : (i+1)*dim]
			for r, row := range block {
				if len(row) < dim {
					return nil, fmt.Errorf("%s row %d: need %d columns, found %d", name, i*dim+r+1, dim, len(row))
				}
			}
			rot[i] = block
		}
	}

	c := &composition{spec: spec, dim: dim, optima: optima, rot: rot}
	c.fmax = make([]float64, n)
	upper := make([]float64, dim)
	for k := range upper {
		upper[k] = compositionUpper
	}
	for i := 0; i < n; i++ {
		c.fmax[i] = spec.funcs[i](c.transform(upper, i, false))
		if c.fmax[i] == 0 || math.IsNaN(c.fmax[i]) || math.IsInf(c.fmax[i], 0) {
			return nil, fmt.Errorf("%w: %s component %d has normalizer %g", ErrDegenerateComposition, spec.name, i+1, c.fmax[i])
		}
	}
	return c, nil
}

func (c *composition) transform(x []float64, i int, shift bool) []float64 {
	tmp := make([]float64, c.dim)
	for k := range tmp {
		v := x[k]
		if shift {
			v -= c.optima[i][k]
		}
		tmp[k] = v / c.spec.lambda[i]
	}
	if c.rot[i] == nil {
		return tmp
	}
	z := make([]float64, c.dim)
	for col := 0; col < c.dim; col++ {
		for row := 0; row < c.dim; row++ {
			z[col] += tmp[row] * c.rot[i][row][col]
		}
	}
	return z
}

func (c *composition) weights(x []float64) []float64 {
	n := len(c.spec.funcs)
	w := make([]float64, n)
	maxw := math.Inf(-1)
	for i := 0; i < n; i++ {
		sum := 0.0
		for k := 0; k < c.dim; k++ {
			d := x[k] - c.optima[i][k]
			sum += d * d
		}
		w[i] = math.Exp(-sum / (2.0 * float64(c.dim) * c.spec.sigma[i] * c.spec.sigma[i]))
		maxw = math.Max(maxw, w[i])
	}
	maxw10 := math.Pow(maxw, 10)
	total := 0.0
	for i := range w {
		if w[i] != maxw {
			w[i] *= 1.0 - maxw10
		}
		total += w[i]
	}
	for i := range w {
		if total == 0 {
			w[i] = 1.0 / float64(n)
		} else {
			w[i] /= total
		}
	}
	return w
}

func (c *composition) evaluate(x []float64) float64 {
	w := c.weights(x)
	result := 0.0
	for i, f := range c.spec.funcs {
		fi := f(c.transform(x, i, true))
		result += w[i] * (compositionC * fi / c.fmax[i])
	}
	return -result
}

func readMatrix(path string) ([][]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var rows [][]float64
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		row := make([]float64, len(fields))
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", filepath.Base(path), line, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func sphere(z []float64) float64 {
	sum := 0.0
	for _, v := range z {
		sum += v * v
	}
	return sum
}

func rastrigin(z []float64) float64 {
	sum := 0.0
	for _, v := range z {
		sum += v*v - 10*math.Cos(2*math.Pi*v) + 10
	}
	return sum
}

func griewank(z []float64) float64 {
	sum := 0.0
	prod := 1.0
	for i, v := range z {
		sum += v * v
		prod *= math.Cos(v / math.Sqrt(float64(i)+1))
	}
	return sum/4000.0 - prod + 1.0
}

func weierstrass(z []float64) float64 {
	const (
		alpha = 0.5
		beta  = 3.0
		kmax  = 20
	)
	var offset, sum float64
	for k := 0; k <= kmax; k++ {
		a := math.Pow(alpha, float64(k))
		b := 2.0 * math.Pi * math.Pow(beta, float64(k))
		offset += a * math.Cos(b*0.5)
		for _, v := range z {
			sum += a * math.Cos(b*(v+0.5))
		}
	}
	return sum - float64(len(z))*offset
}

func f8f2(a, b float64) float64 {
	f2 := 100.0*(a*a-b)*(a*a-b) + (1.0-a)*(1.0-a)
	return 1.0 + f2*f2/4000.0 - math.Cos(f2)
}

func ef8f2(z []float64) float64 {
	d := len(z)
	sum := 0.0
	for i := 0; i < d-1; i++ {
		sum += f8f2(z[i]+1, z[i+1]+1)
	}
	return sum + f8f2(z[d-1]+1, z[0]+1)
}
