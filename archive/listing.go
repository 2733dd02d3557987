package archive

import (
	"errors"
	"fmt"
	"net/textproto"
	"path"
	"sort"
	"strings"
)

// nameList lists dir and returns entry basenames in server order. A
// missing directory is reported as ErrNotFound.
func (c *Client) nameList(dir string) ([]string, error) {
	conn, err := c.session()
	if err != nil {
		return nil, err
	}

	entries, err := conn.NameList(dir)
	if err != nil {
		c.observe(err)
		var protoErr *textproto.Error
		if errors.As(err, &protoErr) && (protoErr.Code == 550 || protoErr.Code == 450) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, dir, err)
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimRight(entry, "/")
		if entry == "" {
			continue
		}
		names = append(names, path.Base(entry))
	}
	c.logger.Debug("listed directory", "dir", dir, "entries", len(names))
	return names, nil
}

// StudyVersionNames returns the version directory names of a study sorted
// lexicographically, so "phs000007.v10.p1" sorts before "phs000007.v2.p1".
// Use StudyVersions or HighestStudyVersion for numeric order.
func (c *Client) StudyVersionNames(accession int) ([]string, error) {
	dir, err := StudyDirectory(accession)
	if err != nil {
		return nil, err
	}
	names, err := c.nameList(dir)
	if err != nil {
		return nil, err
	}

	versions := make([]string, 0, len(names))
	for _, name := range names {
		if studyVersionPattern.MatchString(name) {
			versions = append(versions, name)
		}
	}
	sort.Strings(versions)
	return versions, nil
}

// StudyVersions returns the parsed version directories of a study sorted
// by version number, then participant set.
func (c *Client) StudyVersions(accession int) ([]StudyVersion, error) {
	names, err := c.StudyVersionNames(accession)
	if err != nil {
		return nil, err
	}

	versions := make([]StudyVersion, 0, len(names))
	for _, name := range names {
		if v, ok := ParseStudyVersionName(name); ok {
			versions = append(versions, v)
		}
	}
	sort.SliceStable(versions, func(i, j int) bool {
		if versions[i].Version != versions[j].Version {
			return versions[i].Version < versions[j].Version
		}
		return versions[i].ParticipantSet < versions[j].ParticipantSet
	})
	return versions, nil
}

// HighestStudyVersion returns the numerically largest version of a study.
func (c *Client) HighestStudyVersion(accession int) (int, error) {
	versions, err := c.StudyVersions(accession)
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 0, fmt.Errorf("%w: phs%06d", ErrNoVersions, accession)
	}
	return versions[len(versions)-1].Version, nil
}

// StudyVersionDirectory returns the remote directory of one study version.
// Exactly one directory must carry the version; more than one is an
// ErrInvariant rather than a guess.
func (c *Client) StudyVersionDirectory(accession, version int) (string, error) {
	if version <= 0 {
		return "", fmt.Errorf("%w: %s", ErrInvalidArgument, errStudyVersionValue)
	}
	studyDir, err := StudyDirectory(accession)
	if err != nil {
		return "", err
	}
	names, err := c.StudyVersionNames(accession)
	if err != nil {
		return "", err
	}

	prefix := versionPrefix(accession, version)
	var matches []string
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			matches = append(matches, name)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: phs%06d.v%d does not exist", ErrNotFound, accession, version)
	case 1:
		return path.Join(studyDir, matches[0]), nil
	default:
		return "", fmt.Errorf("%w: phs%06d.v%d matches %d directories: %s",
			ErrInvariant, accession, version, len(matches), strings.Join(matches, ", "))
	}
}

// DataDictionaries returns the full remote paths of the data dictionary
// documents of a study version, in listing order.
func (c *Client) DataDictionaries(accession, version int) ([]string, error) {
	versionDir, err := c.StudyVersionDirectory(accession, version)
	if err != nil {
		return nil, err
	}

	dir := path.Join(versionDir, SummariesDir)
	names, err := c.nameList(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, name := range names {
		if IsDataDictionary(name) {
			files = append(files, path.Join(dir, name))
		}
	}
	return files, nil
}
