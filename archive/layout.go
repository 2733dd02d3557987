package archive

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// Fixed conventions of the archive's directory tree.
const (
	StudiesRoot          = "/archive/studies"
	SummariesDir         = "pheno_variable_summaries"
	DataDictionaryMarker = "data_dict"
	DataDictionarySuffix = "xml"
)

var studyVersionPattern = regexp.MustCompile(`^phs(\d{6})\.v(\d+)\.p(\d+)$`)

// StudyVersion is a parsed study version directory name such as
// "phs000007.v29.p10".
type StudyVersion struct {
	Name           string
	Accession      int
	Version        int
	ParticipantSet int
}

func (v StudyVersion) String() string {
	return v.Name
}

// ParseStudyVersionName parses a directory basename. It reports false when
// the name does not follow the convention in full.
func ParseStudyVersionName(name string) (StudyVersion, bool) {
	m := studyVersionPattern.FindStringSubmatch(name)
	if m == nil {
		return StudyVersion{}, false
	}

	nums := make([]int, 3)
	for i, s := range m[1:] {
		n, err := strconv.Atoi(s)
		if err != nil {
			return StudyVersion{}, false
		}
		nums[i] = n
	}
	return StudyVersion{Name: name, Accession: nums[0], Version: nums[1], ParticipantSet: nums[2]}, true
}

// StudyDirectory returns the remote directory of a study, for example
// "/archive/studies/phs000016" for accession 16. It makes no remote call.
func StudyDirectory(accession int) (string, error) {
	if accession <= 0 {
		return "", fmt.Errorf("%w: %s", ErrInvalidArgument, errStudyValue)
	}
	return path.Join(StudiesRoot, fmt.Sprintf("phs%06d", accession)), nil
}

// IsDataDictionary reports whether a file name is a data dictionary
// document. The match is case-sensitive.
func IsDataDictionary(name string) bool {
	return strings.Contains(name, DataDictionaryMarker) && strings.HasSuffix(name, DataDictionarySuffix)
}

// versionPrefix is the name prefix shared by every participant set of one
// study version. The trailing ".p" keeps v1 from matching v10.
func versionPrefix(accession, version int) string {
	return fmt.Sprintf("phs%06d.v%d.p", accession, version)
}
