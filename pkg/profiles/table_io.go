package profiles

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/F0rt1s/routing/pkg"
	"github.com/dsnet/compress/bzip2"
)

// Write persists the edge-profile dictionary next to the network file.
func (t *EdgeProfileTable) Write(filename string) error {
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

	fmt.Fprintf(w, "%d\n", len(t.profiles))
	for _, p := range t.profiles {
		speedF := strconv.FormatFloat(p.SpeedKmh, 'f', -1, 64)
		fmt.Fprintf(w, "%d %d %s\n", p.RoadClass, p.Oneway, speedF)
	}
	return nil
}

// ReadEdgeProfileTable loads a dictionary written by Write.
func ReadEdgeProfileTable(filename string) (*EdgeProfileTable, error) {
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
	if !sc.Scan() {
		return nil, fmt.Errorf("empty edge-profile file %s", filename)
	}
	count, err := strconv.Atoi(sc.Text())
	if err != nil {
		return nil, err
	}

	t := NewEdgeProfileTable()
	for i := 0; i < count; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("unexpected end of edge-profile file %s", filename)
		}
		var (
			rc     uint8
			oneway uint8
			speed  float64
		)
		if _, err := fmt.Sscanf(sc.Text(), "%d %d %f", &rc, &oneway, &speed); err != nil {
			return nil, fmt.Errorf("malformed edge-profile line %q: %w", sc.Text(), err)
		}
		t.Add(EdgeProfile{
			RoadClass: pkg.RoadClass(rc),
			Oneway:    pkg.Direction(oneway),
			SpeedKmh:  speed,
		})
	}
	return t, nil
}
