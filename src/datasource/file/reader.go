// reader.go
package file

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
)

// ErrUnsupportedFormat 无法读取的输入格式(parquet、pickle 等)
var ErrUnsupportedFormat = errors.New("unsupported input format")

// Options 读取选项
type Options struct {
	// SheetName 为空时读取第一个工作表
	SheetName string
	// HeaderRow 标题行(从 1 开始)，之后的行为数据
	HeaderRow int
}

func (o Options) headerIndex() int {
	if o.HeaderRow < 1 {
		return 0
	}
	return o.HeaderRow - 1
}

var loaders = map[string]func(path string, opts Options) (dataframe.DataFrame, error){
	".csv":  loadCSV,
	".txt":  loadCSV,
	".tsv":  loadCSV,
	".xlsx": loadXLSX,
	".xlsm": loadXLSX,
	".json": loadJSON,
}

// Supported 是否为可读取的文件(忽略 Excel 锁文件和隐藏文件)
func Supported(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".") {
		return false
	}
	_, ok := loaders[strings.ToLower(filepath.Ext(base))]
	return ok
}

// Load 按扩展名读取文件，所有列均以字符串读入，类型由流水线转换
func Load(path string, opts Options) (dataframe.DataFrame, error) {
	ext := strings.ToLower(filepath.Ext(path))
	load, ok := loaders[ext]
	if !ok {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	df, err := load(path, opts)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	return df, nil
}

// ListSupported 目录下可读取的文件，按文件名排序
func ListSupported(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !Supported(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// EnsureDir 确保目录存在
func EnsureDir(dirPath string) error {
	if info, err := os.Stat(dirPath); err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("%s exists but is not a directory", dirPath)
	}
	return os.MkdirAll(dirPath, 0755)
}

func loadCSV(path string, _ Options) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer f.Close()
	return ReadCSV(f)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV 读取 CSV，分隔符从标题行推断(",", ";", "\t")
func ReadCSV(r io.Reader) (dataframe.DataFrame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return dataframe.DataFrame{}, errors.New("empty csv")
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.WithDelimiter(SniffDelimiter(data)),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	return df, df.Err
}

// SniffDelimiter 统计首行引号外各候选分隔符的出现次数，取最多者，默认逗号
func SniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	counts := map[rune]int{}
	quoted := false
	for _, c := range string(line) {
		switch {
		case c == '"':
			quoted = !quoted
		case !quoted && (c == ',' || c == ';' || c == '\t'):
			counts[c]++
		}
	}

	best, n := ',', 0
	for _, c := range []rune{',', ';', '\t'} {
		if counts[c] > n {
			best, n = c, counts[c]
		}
	}
	return best
}

func loadJSON(path string, _ Options) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer f.Close()
	return ReadJSON(f)
}

// ReadJSON 读取记录数组: [{"col": value, ...}, ...]
func ReadJSON(r io.Reader) (dataframe.DataFrame, error) {
	df := dataframe.ReadJSON(r,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	return df, df.Err
}

func loadXLSX(path string, opts Options) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenFile(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("xlsx open file false: %w", err)
	}
	return sheetToDataFrame(xlFile, opts)
}

// ReadXLSXBytes 从内存中的 xlsx 数据读取(邮件附件)
func ReadXLSXBytes(data []byte, opts Options) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("xlsx open binary false: %w", err)
	}
	return sheetToDataFrame(xlFile, opts)
}

func sheetToDataFrame(xlFile *xlsx.File, opts Options) (dataframe.DataFrame, error) {
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, errors.New("excel文件中没有工作表")
	}
	sheet := xlFile.Sheets[0]
	if opts.SheetName != "" {
		s, ok := xlFile.Sheet[opts.SheetName]
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("sheet %q not found", opts.SheetName)
		}
		sheet = s
	}
	return convertSheet(sheet, opts.headerIndex())
}

// convertSheet 将xlsx.Sheet转换为dataframe.DataFrame
// 单元格取原始值: 日期为 excel 序列号，由流水线解析
func convertSheet(sheet *xlsx.Sheet, header int) (dataframe.DataFrame, error) {
	if len(sheet.Rows) <= header {
		return dataframe.DataFrame{}, fmt.Errorf("sheet %s has no header row %d", sheet.Name, header+1)
	}

	headers := headerNames(sheet.Rows[header])
	if len(headers) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("sheet %s: empty header row", sheet.Name)
	}

	columns := make([][]string, len(headers))
	for _, row := range sheet.Rows[header+1:] {
		if row == nil || emptyRow(row) {
			continue
		}
		for i := range headers {
			v := ""
			if i < len(row.Cells) && row.Cells[i] != nil {
				v = strings.TrimSpace(row.Cells[i].Value)
			}
			columns[i] = append(columns[i], v)
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, name := range headers {
		seriesList[i] = series.New(columns[i], series.String, name)
	}
	df := dataframe.New(seriesList...)
	return df, df.Err
}

// headerNames 去掉尾部空列；空标题命名为 column_N，重名追加序号
func headerNames(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	raw := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		if cell != nil {
			raw[i] = strings.TrimSpace(cell.Value)
		}
	}
	for len(raw) > 0 && raw[len(raw)-1] == "" {
		raw = raw[:len(raw)-1]
	}

	seen := make(map[string]int, len(raw))
	names := make([]string, len(raw))
	for i, name := range raw {
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		seen[name]++
		if seen[name] > 1 {
			name = fmt.Sprintf("%s_%d", name, seen[name])
		}
		names[i] = name
	}
	return names
}

func emptyRow(row *xlsx.Row) bool {
	for _, cell := range row.Cells {
		if cell != nil && strings.TrimSpace(cell.Value) != "" {
			return false
		}
	}
	return true
}
