package datastructure

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/F0rt1s/routing/pkg/geo"
)

// WriteNetwork persists the network as bzip2-compressed text. The
// layout is line oriented: a header with the element counts, then
// vertices, edges and shape points.
func (n *Network) WriteNetwork(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}
	defer bz.Close()

	w := bufio.NewWriter(bz)
	defer w.Flush()

	fmt.Fprintf(w, "%d %d %d\n", len(n.vertices), len(n.edges), len(n.shapes))

	for _, v := range n.vertices {
		latF := strconv.FormatFloat(v.GetLat(), 'f', -1, 64)
		lonF := strconv.FormatFloat(v.GetLon(), 'f', -1, 64)
		fmt.Fprintf(w, "%s %s\n", latF, lonF)
	}

	for _, e := range n.edges {
		distF := strconv.FormatFloat(float64(e.distance), 'f', -1, 32)
		fmt.Fprintf(w, "%d %d %s %d %d %d %d\n",
			e.from, e.to, distF, e.profileID, e.metaID, e.shapeStart, e.shapeCount)
	}

	for _, c := range n.shapes {
		latF := strconv.FormatFloat(c.Lat, 'f', -1, 64)
		lonF := strconv.FormatFloat(c.Lon, 'f', -1, 64)
		fmt.Fprintf(w, "%s %s\n", latF, lonF)
	}

	return nil
}

// ReadNetwork loads a network written by WriteNetwork and freezes it.
func ReadNetwork(filename string) (*Network, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, &bzip2.ReaderConfig{})
	if err != nil {
		return nil, err
	}
	defer bz.Close()

	sc := bufio.NewScanner(bz)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)

	readLine := func() (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("unexpected end of network file %s", filename)
		}
		return sc.Text(), nil
	}

	header, err := readLine()
	if err != nil {
		return nil, err
	}
	var numV, numE, numS int
	if _, err := fmt.Sscanf(header, "%d %d %d", &numV, &numE, &numS); err != nil {
		return nil, fmt.Errorf("malformed network header: %w", err)
	}

	n := NewNetwork()
	n.vertices = make([]Vertex, 0, numV)
	n.edges = make([]Edge, 0, numE)
	n.shapes = make([]geo.Coordinate, 0, numS)

	for i := 0; i < numV; i++ {
		line, err := readLine()
		if err != nil {
			return nil, err
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed vertex line %q", line)
		}
		lat, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, err
		}
		lon, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, err
		}
		n.vertices = append(n.vertices, Vertex{lat: float32(lat), lon: float32(lon)})
	}

	for i := 0; i < numE; i++ {
		line, err := readLine()
		if err != nil {
			return nil, err
		}
		var e Edge
		var dist float64
		if _, err := fmt.Sscanf(line, "%d %d %f %d %d %d %d",
			&e.from, &e.to, &dist, &e.profileID, &e.metaID, &e.shapeStart, &e.shapeCount); err != nil {
			return nil, fmt.Errorf("malformed edge line %q: %w", line, err)
		}
		e.distance = float32(dist)
		n.edges = append(n.edges, e)
	}

	for i := 0; i < numS; i++ {
		line, err := readLine()
		if err != nil {
			return nil, err
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed shape line %q", line)
		}
		lat, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, err
		}
		lon, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, err
		}
		n.shapes = append(n.shapes, geo.NewCoordinate(lat, lon))
	}

	n.Freeze()
	return n, nil
}

// WriteRestrictions persists per-profile restriction sequences.
func WriteRestrictions(filename string, restrictions map[string][][]Index) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}
	defer bz.Close()

	w := bufio.NewWriter(bz)
	defer w.Flush()

	fmt.Fprintf(w, "%d\n", len(restrictions))
	for name, seqs := range restrictions {
		fmt.Fprintf(w, "%s %d\n", name, len(seqs))
		for _, seq := range seqs {
			for i, v := range seq {
				if i > 0 {
					fmt.Fprintf(w, " ")
				}
				fmt.Fprintf(w, "%d", v)
			}
			fmt.Fprintf(w, "\n")
		}
	}
	return nil
}

// ReadRestrictions loads restriction sequences written by
// WriteRestrictions.
func ReadRestrictions(filename string) (map[string][][]Index, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, &bzip2.ReaderConfig{})
	if err != nil {
		return nil, err
	}
	defer bz.Close()

	sc := bufio.NewScanner(bz)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)

	readLine := func() (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("unexpected end of restrictions file %s", filename)
		}
		return sc.Text(), nil
	}

	header, err := readLine()
	if err != nil {
		return nil, err
	}
	numProfiles, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil {
		return nil, err
	}

	out := make(map[string][][]Index, numProfiles)
	for p := 0; p < numProfiles; p++ {
		line, err := readLine()
		if err != nil {
			return nil, err
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed restriction profile line %q", line)
		}
		name := parts[0]
		count, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, err
		}
		seqs := make([][]Index, 0, count)
		for i := 0; i < count; i++ {
			line, err := readLine()
			if err != nil {
				return nil, err
			}
			fields := strings.Fields(line)
			seq := make([]Index, 0, len(fields))
			for _, fld := range fields {
				v, err := strconv.ParseInt(fld, 10, 32)
				if err != nil {
					return nil, err
				}
				seq = append(seq, Index(v))
			}
			seqs = append(seqs, seq)
		}
		out[name] = seqs
	}
	return out, nil
}
