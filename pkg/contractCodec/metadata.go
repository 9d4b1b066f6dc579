package contractCodec

import (
	_ "embed"
	"encoding/json"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

//go:embed schema.json
var metadataSchema string

var ErrInvalidMetadata = errors.New("invalid contract metadata")

type typeRef struct {
	Type        uint32   `json:"type"`
	DisplayName []string `json:"displayName"`
}

type messageArg struct {
	Label string  `json:"label"`
	Type  typeRef `json:"type"`
}

type callableSpec struct {
	Label      string       `json:"label"`
	Selector   string       `json:"selector"`
	Mutates    bool         `json:"mutates"`
	Payable    bool         `json:"payable"`
	Args       []messageArg `json:"args"`
	ReturnType *typeRef     `json:"returnType"`
	Docs       []string     `json:"docs"`
}

type inkMetadata struct {
	Version  json.RawMessage `json:"version"`
	Contract struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"contract"`
	Spec struct {
		Messages []callableSpec `json:"messages"`
	} `json:"spec"`
	Types json.RawMessage `json:"types"`
}

// validateMetadata checks the top-level shape of ink! metadata before it is
// decoded, so malformed files fail with a readable list of problems.
func validateMetadata(raw []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(metadataSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return errors.Wrap(ErrInvalidMetadata, err.Error())
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return errors.Wrap(ErrInvalidMetadata, strings.Join(problems, "; "))
	}
	return nil
}

func parseSelector(s string) ([4]byte, error) {
	var sel [4]byte
	b, err := hexutil.Decode(s)
	if err != nil {
		return sel, errors.Wrapf(ErrInvalidMetadata, "selector '%s': %v", s, err)
	}
	if len(b) != len(sel) {
		return sel, errors.Wrapf(ErrInvalidMetadata, "selector '%s' is %d bytes", s, len(b))
	}
	copy(sel[:], b)
	return sel, nil
}

// Load reads and parses the ink! metadata file at path.
func Load(path string, l *zap.Logger) (*Codec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read contract metadata '%s'", path)
	}
	c, err := Parse(raw, l)
	if err != nil {
		return nil, errors.Wrapf(err, "contract metadata '%s'", path)
	}
	return c, nil
}
