package support

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/census-contrib/internal/testutil"
	"github.com/cucumber/godog"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// aMetadataFileFor writes contribution metadata for the given accession, as
// JSON or YAML depending on the extension.
func (testCtx *TestContext) aMetadataFileFor(filename, accession string, nFeatures int) error {
	md := map[string]any{
		"id":          accession,
		"title":       "Integration test embedding",
		"description": "written by the CLI feature suite",
		"primary_contact": map[string]string{
			"name":        "Feature Test",
			"email":       "feature@example.org",
			"affiliation": "Example Lab",
		},
		"experiment_name":  "homo_sapiens",
		"measurement_name": "RNA",
		"n_features":       nFeatures,
		"data_type":        "obs_embedding",
		"census_version":   "latest",
	}

	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(filename, ".json") {
		data, err = json.MarshalIndent(md, "", "  ")
	} else {
		data, err = yaml.Marshal(md)
	}
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	return testCtx.writeFile(filename, data)
}

// embeddingValue is the deterministic coordinate used for generated fixtures.
func embeddingValue(row, col int) float32 {
	return float32(row) + float32(col)/4
}

// aCSVEmbeddingWith writes rows with joinids 100, 101, ... and a header line.
func (testCtx *TestContext) aCSVEmbeddingWith(filename string, rows, features int) error {
	delim := ","
	if strings.HasSuffix(filename, ".tsv") {
		delim = "\t"
	}

	var sb strings.Builder
	header := []string{"soma_joinid"}
	for j := range features {
		header = append(header, fmt.Sprintf("dim_%d", j))
	}
	sb.WriteString(strings.Join(header, delim) + "\n")

	for i := range rows {
		fields := []string{strconv.Itoa(100 + i)}
		for j := range features {
			fields = append(fields, strconv.FormatFloat(float64(embeddingValue(i, j)), 'g', -1, 32))
		}
		sb.WriteString(strings.Join(fields, delim) + "\n")
	}
	return testCtx.writeFile(filename, []byte(sb.String()))
}

// numPyEmbeddingFiles writes int64 joinids 100.. and float32 coordinates.
func (testCtx *TestContext) numPyEmbeddingFiles(joinIDFile, embeddingFile string, rows, features int) error {
	ids := make([]int64, rows)
	coords := make([]float32, 0, rows*features)
	for i := range rows {
		ids[i] = int64(100 + i)
		for j := range features {
			coords = append(coords, embeddingValue(i, j))
		}
	}

	idBytes, err := testutil.EncodeNPY("<i8", fmt.Sprintf("(%d,)", rows), ids)
	if err != nil {
		return err
	}
	embBytes, err := testutil.EncodeNPY("<f4", fmt.Sprintf("(%d, %d)", rows, features), coords)
	if err != nil {
		return err
	}
	if err := testCtx.writeFile(joinIDFile, idBytes); err != nil {
		return err
	}
	return testCtx.writeFile(embeddingFile, embBytes)
}

// logRecord is the subset of a JSON log line the steps inspect.
type logRecord struct {
	Msg     string
	Item    int64
	Elapsed float64
}

// iteratorRecords returns the warning records the named iterator emitted.
func (testCtx *TestContext) iteratorRecords(name string) ([]logRecord, error) {
	var out []logRecord
	scanner := bufio.NewScanner(strings.NewReader(testCtx.LastStderr))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		if !gjson.Valid(line) {
			return nil, fmt.Errorf("invalid log line %q", line)
		}
		rec := gjson.GetMany(line, "level", "iterator", "msg", "item", "elapsed_seconds")
		if rec[0].String() != "WARN" || rec[1].String() != name {
			continue
		}
		out = append(out, logRecord{Msg: rec[2].String(), Item: rec[3].Int(), Elapsed: rec[4].Float()})
	}
	return out, scanner.Err()
}

// theLogShouldContainIteratorRecords checks count, numbering and message shape
// of the timing records.
func (testCtx *TestContext) theLogShouldContainIteratorRecords(want int, name string) error {
	records, err := testCtx.iteratorRecords(name)
	if err != nil {
		return err
	}
	if len(records) != want {
		return fmt.Errorf("found %d %q iterator records, expected %d\nStderr: %s",
			len(records), name, want, testCtx.LastStderr)
	}
	for i, rec := range records {
		prefix := name + " iterator: "
		suffix := fmt.Sprintf("s for item #%d", i+1)
		if !strings.HasPrefix(rec.Msg, prefix) || !strings.HasSuffix(rec.Msg, suffix) {
			return fmt.Errorf("record %d has unexpected message %q", i+1, rec.Msg)
		}
		if rec.Item != int64(i+1) {
			return fmt.Errorf("record %d reports item %d", i+1, rec.Item)
		}
		if rec.Elapsed < 0 {
			return fmt.Errorf("record %d reports negative elapsed time %g", i+1, rec.Elapsed)
		}
	}
	return nil
}

// theLogShouldNotMention checks stderr lacks a message.
func (testCtx *TestContext) theLogShouldNotMention(text string) error {
	if strings.Contains(testCtx.LastStderr, text) {
		return fmt.Errorf("log unexpectedly mentions %q\nStderr: %s", text, testCtx.LastStderr)
	}
	return nil
}

// theLogShouldMention checks stderr contains a message.
func (testCtx *TestContext) theLogShouldMention(text string) error {
	if !strings.Contains(testCtx.LastStderr, text) {
		return fmt.Errorf("log does not mention %q\nStderr: %s", text, testCtx.LastStderr)
	}
	return nil
}

// theMetricShouldBe checks one sample of a single-label metric in a textfile.
func (testCtx *TestContext) theMetricShouldBe(name, filename, want, label, value string) error {
	return testCtx.theFileShouldContain(filename, fmt.Sprintf("%s{%s=%q} %s\n", name, label, value, want))
}

// RegisterIngestSteps registers embedding fixture and log steps.
func (testCtx *TestContext) RegisterIngestSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a metadata file "([^"]*)" for accession "([^"]*)" with (\d+) features$`, testCtx.aMetadataFileFor)
	sc.Step(`^a CSV embedding "([^"]*)" with (\d+) rows and (\d+) features$`, testCtx.aCSVEmbeddingWith)
	sc.Step(`^NumPy embedding files "([^"]*)" and "([^"]*)" with (\d+) rows and (\d+) features$`,
		testCtx.numPyEmbeddingFiles)
	sc.Step(`^the log should contain (\d+) iterator records for "([^"]*)"$`, testCtx.theLogShouldContainIteratorRecords)
	sc.Step(`^the metric "([^"]*)" in "([^"]*)" should be (\S+) for (\w+)=(\w+)$`, testCtx.theMetricShouldBe)
	sc.Step(`^the log should mention "([^"]*)"$`, testCtx.theLogShouldMention)
	sc.Step(`^the log should not mention "([^"]*)"$`, testCtx.theLogShouldNotMention)
}
