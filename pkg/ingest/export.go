package ingest

import (
	"bufio"
	"io"
	"strconv"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/timeline"
)

// WriteSeries writes one "timestamp<TAB>value" line per sample
func WriteSeries(w io.Writer, s timeline.Series) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 64)
	for _, smp := range s {
		buf = strconv.AppendInt(buf[:0], smp.Timestamp, 10)
		buf = append(buf, '\t')
		buf = strconv.AppendFloat(buf, smp.Value, 'g', -1, 64)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}
