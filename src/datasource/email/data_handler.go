// data_handler.go
package email

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"ThermalComfort/src/datasource/file"

	"github.com/go-gota/gota/dataframe"
)

// Table 把附件读取为表格，按扩展名选择读取方式
func (a *Attachment) Table(opts file.Options) (dataframe.DataFrame, error) {
	switch ext := strings.ToLower(filepath.Ext(a.Filename)); ext {
	case ".xlsx", ".xlsm":
		return file.ReadXLSXBytes(a.Content, opts)
	case ".csv", ".txt", ".tsv":
		return file.ReadCSV(bytes.NewReader(a.Content))
	case ".json":
		return file.ReadJSON(bytes.NewReader(a.Content))
	default:
		return dataframe.DataFrame{}, fmt.Errorf("%w: %s", file.ErrUnsupportedFormat, ext)
	}
}
