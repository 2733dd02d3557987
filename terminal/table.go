package terminal

import (
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/UW-GAC/dbgap-ftp/archive"
	"github.com/UW-GAC/dbgap-ftp/transfer"
)

// TableFormatter handles formatted table output
type TableFormatter struct {
	out   io.Writer
	table *tablewriter.Table
}

// NewTableFormatter creates a table formatter writing to out
func NewTableFormatter(out io.Writer) *TableFormatter {
	table := tablewriter.NewWriter(out)
	table.Options(
		tablewriter.WithRendition(tw.Rendition{Borders: tw.Border{Left: tw.Pending, Right: tw.Pending, Top: tw.Pending, Bottom: tw.Pending}}),
		tablewriter.WithPadding(tw.Padding{Left: " ", Right: " "}),
	)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.MaxWidth = 0 // No max width
		cfg.Header = tw.CellConfig{
			Alignment: tw.CellAlignment{
				Global: tw.AlignLeft,
			},
		}
		cfg.Row = tw.CellConfig{
			Alignment: tw.CellAlignment{
				Global: tw.AlignLeft,
			},
		}
		cfg.Behavior = tw.Behavior{}
	})

	return &TableFormatter{
		out:   out,
		table: table,
	}
}

// FormatStudyVersions renders one row per version directory, marking the
// highest version.
func (tf *TableFormatter) FormatStudyVersions(versions []archive.StudyVersion) error {
	if len(versions) == 0 {
		fmt.Fprintln(tf.out, "No versions found")
		return nil
	}

	highest := versions[0].Version
	for _, v := range versions {
		if v.Version > highest {
			highest = v.Version
		}
	}

	rows := make([][]string, 0, len(versions))
	for _, v := range versions {
		mark := ""
		if v.Version == highest {
			mark = "*"
		}
		rows = append(rows, []string{
			v.Name,
			strconv.Itoa(v.Version),
			strconv.Itoa(v.ParticipantSet),
			mark,
		})
	}
	return tf.render([]string{"Directory", "Version", "Participant Set", "Highest"}, rows)
}

// FormatRemoteFiles renders remote file paths by base name and type.
func (tf *TableFormatter) FormatRemoteFiles(paths []string) error {
	if len(paths) == 0 {
		fmt.Fprintln(tf.out, "No files found")
		return nil
	}

	rows := make([][]string, 0, len(paths))
	for _, p := range paths {
		name := path.Base(p)
		rows = append(rows, []string{truncateName(name), fileType(name)})
	}
	return tf.render([]string{"Name", "Type"}, rows)
}

// FormatLocalDirectory renders the regular files in a local directory
func (tf *TableFormatter) FormatLocalDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var rows [][]string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		rows = append(rows, []string{
			truncateName(entry.Name()),
			fileType(entry.Name()),
			transfer.FormatSize(info.Size()),
			info.ModTime().Format("Jan 02 15:04"),
		})
	}

	if len(rows) == 0 {
		fmt.Fprintln(tf.out, "Directory is empty")
		return nil
	}
	return tf.render([]string{"Name", "Type", "Size", "Modified"}, rows)
}

func (tf *TableFormatter) render(header []string, rows [][]string) error {
	tf.table.Reset()
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	tf.table.Header(cells...)
	for _, row := range rows {
		if err := tf.table.Append(row); err != nil {
			return err
		}
	}
	return tf.table.Render()
}

// fileType shows the extension in caps
func fileType(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 && i < len(name)-1 {
		return strings.ToUpper(name[i+1:])
	}
	return "file"
}

// Truncate long names
func truncateName(name string) string {
	if len(name) > 60 {
		return name[:57] + "..."
	}
	return name
}
