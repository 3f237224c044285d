package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/riscv-tools/sim-acceptor/types"
)

// JUnitSink writes the report as a JUnit-style XML document: one
// <testsuites> element wrapping one <testsuite> per (backend, width)
// combination, each wrapping one <testcase> per executed test.
type JUnitSink struct {
	Path string
}

// NewJUnitSink creates a sink writing to the given file path.
func NewJUnitSink(path string) *JUnitSink {
	return &JUnitSink{Path: path}
}

type junitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Suites   []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Timestamp string          `xml:"timestamp,attr"`
	Cases     []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string        `xml:"name,attr"`
	Failure *junitFailure `xml:"failure,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Content string `xml:",chardata"`
}

// Write serializes the report and writes it in one shot.
func (s *JUnitSink) Write(data *ReportData) error {
	doc := junitTestSuites{
		Tests:    data.Stats.Total,
		Failures: data.Stats.Failed,
	}

	for _, suite := range data.Suites {
		js := junitTestSuite{
			Name:      suite.Name,
			Tests:     suite.Stats.Total,
			Failures:  suite.Stats.Failed,
			Timestamp: suite.Timestamp.Format(time.RFC3339),
		}
		for _, test := range suite.Tests {
			jc := junitTestCase{Name: test.Name}
			if test.Status != types.TestStatusPass {
				jc.Failure = &junitFailure{
					Message: test.Message,
					Content: test.Message,
				}
			}
			js.Cases = append(js.Cases, jc)
		}
		doc.Suites = append(doc.Suites, js)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	out = append([]byte(xml.Header), out...)
	out = append(out, '\n')

	if err := os.WriteFile(s.Path, out, 0644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", s.Path, err)
	}
	return nil
}
