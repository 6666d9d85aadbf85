package source

import (
	"fmt"
	"io"
	"os"

	pb "gopkg.in/cheggaaa/pb.v1"
)

// progressBar reads through a progress bar on stderr. Closing it closes the
// file and clears the bar line.
type progressBar struct {
	r   io.Reader
	f   *os.File
	bar *pb.ProgressBar
}

func wrapProgress(f *os.File) (*progressBar, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	bar := pb.New64(fi.Size()).SetUnits(pb.U_BYTES_DEC).SetWidth(79)
	bar.Output = os.Stderr
	bar.Start()

	return &progressBar{r: bar.NewProxyReader(f), f: f, bar: bar}, nil
}

func (p *progressBar) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

func (p *progressBar) Close() error {
	// make sure Finish() does not print a newline
	p.bar.Output = nil
	p.bar.NotPrint = true
	p.bar.Finish()

	fmt.Fprint(os.Stderr, "\033[2K\r")

	return p.f.Close()
}
