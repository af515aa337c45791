package cloud

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/rbfsurf/pkg/geom"
)

// ReadXYZ reads one oriented point per line as "x y z nx ny nz". Lines
// with fewer than six fields are skipped, as are blank lines and lines
// starting with '#'. Extra fields are ignored.
func ReadXYZ(r io.Reader) ([]geom.OrientedPoint, error) {
	var points []geom.OrientedPoint

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 6 {
			continue
		}

		var v [6]float64
		for i := 0; i < 6; i++ {
			f, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, &ParseError{Line: line, Msg: "invalid number " + strconv.Quote(fields[i]), Err: err}
			}
			v[i] = f
		}
		points = append(points, geom.NewOrientedPoint(v[0], v[1], v[2], v[3], v[4], v[5]))
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Line: line, Msg: "read failed", Err: err}
	}
	return points, nil
}

// WriteXYZ writes points in the format read by ReadXYZ.
func WriteXYZ(w io.Writer, points []geom.OrientedPoint) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 128)
	for _, p := range points {
		buf = buf[:0]
		for i, f := range [6]float64{p.Pos.X, p.Pos.Y, p.Pos.Z, p.Normal.X, p.Normal.Y, p.Normal.Z} {
			if i > 0 {
				buf = append(buf, ' ')
			}
			buf = strconv.AppendFloat(buf, f, 'g', -1, 64)
		}
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}
