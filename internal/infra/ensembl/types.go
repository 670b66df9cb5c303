package ensembl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vietddude/varannot/internal/core/domain"
)

// overlapFeature is one element of an /overlap/region response.
type overlapFeature struct {
	ID           string `json:"id"`
	ExternalName string `json:"external_name"`
	Biotype      string `json:"biotype"`
	FeatureType  string `json:"feature_type"`
}

// vepResult is one element of a /vep/human/region response.
type vepResult struct {
	Input                 string             `json:"input"`
	AlleleString          string             `json:"allele_string"`
	MostSevereConsequence string             `json:"most_severe_consequence"`
	ColocatedVariants     []colocatedVariant `json:"colocated_variants"`
}

type colocatedVariant struct {
	ID          string            `json:"id"`
	Frequencies alleleFrequencies `json:"frequencies"`
}

// alleleFrequencies decodes {"allele": {"population": frequency}} into a flat
// list that keeps the order the service reported. Entries with a null or
// non-numeric frequency are dropped.
type alleleFrequencies []domain.PopulationFrequency

func (af *alleleFrequencies) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*af = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return err
	}

	var out alleleFrequencies
	for dec.More() {
		allele, err := stringToken(dec)
		if err != nil {
			return err
		}
		if err := expectDelim(dec, '{'); err != nil {
			return fmt.Errorf("allele %s: %w", allele, err)
		}

		for dec.More() {
			key, err := stringToken(dec)
			if err != nil {
				return err
			}
			var v any
			if err := dec.Decode(&v); err != nil {
				return fmt.Errorf("allele %s population %s: %w", allele, key, err)
			}
			n, ok := v.(json.Number)
			if !ok {
				continue
			}
			f, err := n.Float64()
			if err != nil {
				continue
			}
			out = append(out, domain.PopulationFrequency{
				Allele:     allele,
				Frequency:  f,
				Population: PopulationName(key),
			})
		}

		if err := expectDelim(dec, '}'); err != nil {
			return err
		}
	}

	if err := expectDelim(dec, '}'); err != nil {
		return err
	}

	*af = out
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return s, nil
}

// thousandGenomesSuperPops are the 1000 Genomes phase 3 super-population keys.
var thousandGenomesSuperPops = map[string]bool{
	"afr": true, "amr": true, "eas": true, "eur": true, "sas": true,
}

// PopulationName maps a VEP frequency key to a dataset:population label,
// e.g. "gnomade_nfe" to "gnomADe:NFE" and "eur" to "1000GENOMES:phase_3:EUR".
// Unknown keys are returned unchanged.
func PopulationName(key string) string {
	k := strings.ToLower(key)

	switch {
	case k == "af":
		return "1000GENOMES:phase_3:ALL"
	case thousandGenomesSuperPops[k]:
		return "1000GENOMES:phase_3:" + strings.ToUpper(k)
	case k == "gnomade":
		return "gnomADe:ALL"
	case k == "gnomadg":
		return "gnomADg:ALL"
	case strings.HasPrefix(k, "gnomade_"):
		return "gnomADe:" + strings.ToUpper(strings.TrimPrefix(k, "gnomade_"))
	case strings.HasPrefix(k, "gnomadg_"):
		return "gnomADg:" + strings.ToUpper(strings.TrimPrefix(k, "gnomadg_"))
	}
	return key
}
