package ssf

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Exporter defines an export interface.
type Exporter interface {
	Write(*State) error
	Close() error
}

// CSVExporter writes states to a CSV file, each component followed by its ±2σ bounds.
type CSVExporter struct {
	delimiter string
	hdlr      *os.File
}

// Close closes the file.
func (e CSVExporter) Close() (err error) {
	err = e.WriteRawLn(fmt.Sprintf("# Closing date (UTC): %s", time.Now().UTC()))
	if err != nil {
		return
	}
	return e.hdlr.Close()
}

// Write writes the state to the CSV file.
func (e CSVExporter) Write(s *State) error {
	r := s.Dim()
	vals := make([]string, r*3)
	for i := 0; i < r*3; i += 3 {
		a := s.A.AtVec(i / 3)
		twoσ := 2 * math.Sqrt(math.Max(s.P.At(i/3, i/3), 0))
		vals[i] = fmt.Sprintf("%f", a)
		vals[i+1] = fmt.Sprintf("%f", a+twoσ)
		vals[i+2] = fmt.Sprintf("%f", a-twoσ)
	}
	_, err := e.hdlr.WriteString(strings.Join(vals, e.delimiter) + "\n")
	return err
}

// WriteRawLn writes a raw line to the CSV file.
func (e CSVExporter) WriteRawLn(s string) error {
	_, err := e.hdlr.WriteString(s + "\n")
	return err
}

// Name returns the path of the file.
func (e CSVExporter) Name() string {
	return e.hdlr.Name()
}

// NewCSVExporter initializes a new CSV export.
func NewCSVExporter(headers []string, dir, filename string) (e *CSVExporter, err error) {
	f, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return
	}
	delimiter := ","
	hdr := make([]string, len(headers)*3)
	for i := 0; i < len(headers)*3; i += 3 {
		hdr[i] = headers[i/3]
		hdr[i+1] = hdr[i] + "+2s"
		hdr[i+2] = hdr[i] + "-2s"
	}
	if _, err = f.WriteString(fmt.Sprintf("# Creation date (UTC): %s\n%s\n", time.Now().UTC(), strings.Join(hdr, delimiter))); err != nil {
		f.Close()
		return nil, err
	}
	e = &CSVExporter{delimiter, f}
	return
}

// ExportSmoothing writes the smoothed states of sr with the exporter.
func ExportSmoothing(e Exporter, sr *SmoothingResults) error {
	for t := 0; t < sr.Len(); t++ {
		if err := e.Write(sr.State(t)); err != nil {
			return err
		}
	}
	return nil
}

// ExportFiltering writes the filtered states of res with the exporter.
func ExportFiltering(e Exporter, res *FilteringResults) error {
	for t := 0; t < res.Len(); t++ {
		s := NewState(res.Dim())
		s.A.CopyVec(res.FilteredMean(t))
		s.P.CopySym(res.FilteredVariance(t))
		s.Phase = Concurrent
		if err := e.Write(s); err != nil {
			return err
		}
	}
	return nil
}
