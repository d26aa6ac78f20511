package tax

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/evgarage-erp/evgarage-erp/internal/shared"
)

// gstStateCodes maps the two-digit GST state code to the state name.
var gstStateCodes = map[string]string{
	"01": "Jammu and Kashmir",
	"02": "Himachal Pradesh",
	"03": "Punjab",
	"04": "Chandigarh",
	"05": "Uttarakhand",
	"06": "Haryana",
	"07": "Delhi",
	"08": "Rajasthan",
	"09": "Uttar Pradesh",
	"10": "Bihar",
	"11": "Sikkim",
	"12": "Arunachal Pradesh",
	"13": "Nagaland",
	"14": "Manipur",
	"15": "Mizoram",
	"16": "Tripura",
	"17": "Meghalaya",
	"18": "Assam",
	"19": "West Bengal",
	"20": "Jharkhand",
	"21": "Odisha",
	"22": "Chhattisgarh",
	"23": "Madhya Pradesh",
	"24": "Gujarat",
	"26": "Dadra and Nagar Haveli and Daman and Diu",
	"27": "Maharashtra",
	"29": "Karnataka",
	"30": "Goa",
	"31": "Lakshadweep",
	"32": "Kerala",
	"33": "Tamil Nadu",
	"34": "Puducherry",
	"35": "Andaman and Nicobar Islands",
	"36": "Telangana",
	"37": "Andhra Pradesh",
	"38": "Ladakh",
	"97": "Other Territory",
}

var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

const checksumAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GSTIN is a validated GST registration number.
type GSTIN struct {
	Value     string
	StateCode string
	StateName string
}

// ValidateGSTIN checks length, state code, structure and the mod-36 checksum.
func ValidateGSTIN(raw string) (GSTIN, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if len(s) != 15 {
		return GSTIN{}, fmt.Errorf("%w: GSTIN must be 15 characters, got %d", shared.ErrValidation, len(s))
	}
	state, ok := gstStateCodes[s[:2]]
	if !ok {
		return GSTIN{}, fmt.Errorf("%w: unknown GST state code %q", shared.ErrValidation, s[:2])
	}
	if !gstinPattern.MatchString(s) {
		return GSTIN{}, fmt.Errorf("%w: GSTIN %q has invalid structure", shared.ErrValidation, s)
	}
	if expect := gstinCheckChar(s[:14]); expect != s[14] {
		return GSTIN{}, fmt.Errorf("%w: GSTIN checksum mismatch", shared.ErrValidation)
	}
	return GSTIN{Value: s, StateCode: s[:2], StateName: state}, nil
}

// gstinCheckChar computes the 15th character over the first 14 using the
// standard mod-36 scheme: alternating 1/2 factors, digit sums in base 36.
func gstinCheckChar(body string) byte {
	hash := 0
	for i := 0; i < len(body); i++ {
		value := strings.IndexByte(checksumAlphabet, body[i])
		factor := 1
		if i%2 == 1 {
			factor = 2
		}
		product := value * factor
		hash += product/36 + product%36
	}
	return checksumAlphabet[(36-hash%36)%36]
}

// StateName resolves a bare two-digit state code, for callers that validate
// place of supply without a full GSTIN.
func StateName(code string) (string, bool) {
	name, ok := gstStateCodes[code]
	return name, ok
}
