package utils

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// ResolveColumn 将配置中的列名解析为表中真实存在的列名
// 依次尝试: 完全匹配、忽略大小写、"-" 与 "_" 互换
func ResolveColumn(df dataframe.DataFrame, name string) (string, bool) {
	names := df.Names()
	if Contains(names, name) {
		return name, true
	}

	lower := make(map[string]string, len(names))
	for _, n := range names {
		lower[strings.ToLower(n)] = n
	}
	key := strings.ToLower(name)
	if n, ok := lower[key]; ok {
		return n, true
	}
	for _, alt := range []string{
		strings.ReplaceAll(key, "_", "-"),
		strings.ReplaceAll(key, "-", "_"),
	} {
		if n, ok := lower[alt]; ok {
			return n, true
		}
	}
	return "", false
}

var lowerCaser = cases.Lower(language.Und)

// NormalizeColumnName 列名标准化: 去重音、小写、去首尾空白、内部空白转为下划线
func NormalizeColumnName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = lowerCaser.String(folded)
	return strings.Join(strings.Fields(folded), "_")
}

// NormalizeColumnNames 返回列名标准化后的新表，原表不变
// 标准化后重名的列追加 _2, _3 ... 后缀
func NormalizeColumnNames(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if df.Err != nil {
		return df, df.Err
	}
	out := df.Copy()
	seen := make(map[string]int, out.Ncol())
	names := make([]string, 0, out.Ncol())
	for _, n := range out.Names() {
		name := NormalizeColumnName(n)
		seen[name]++
		if seen[name] > 1 {
			name = fmt.Sprintf("%s_%d", name, seen[name])
		}
		names = append(names, name)
	}
	if err := out.SetNames(names...); err != nil {
		return df, fmt.Errorf("列名标准化失败: %w", err)
	}
	return out, nil
}

// IsMissing 判断元素是否缺失(NA 或 NaN)
func IsMissing(e series.Element) bool {
	if e.IsNA() {
		return true
	}
	if e.Type() == series.Float {
		return math.IsNaN(e.Float())
	}
	return false
}

// MissingCount 统计列中缺失值个数
func MissingCount(s series.Series) int {
	n := 0
	for i := 0; i < s.Len(); i++ {
		if IsMissing(s.Elem(i)) {
			n++
		}
	}
	return n
}

// IsNumeric 数值列(Float/Int)
func IsNumeric(s series.Series) bool {
	return s.Type() == series.Float || s.Type() == series.Int
}

// Floats 按行取出数值，缺失记为 NaN
func Floats(s series.Series) []float64 {
	out := make([]float64, s.Len())
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if IsMissing(e) {
			out[i] = math.NaN()
			continue
		}
		out[i] = e.Float()
	}
	return out
}

// Observed 取出非缺失数值
func Observed(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// ValueString 元素的原始文本表示，浮点数使用最短表示("99" 而不是 "99.000000")
func ValueString(e series.Element) string {
	if e.Type() == series.Float && !IsMissing(e) {
		return strconv.FormatFloat(e.Float(), 'f', -1, 64)
	}
	return e.String()
}

// FloatSeries 由 []float64 构建 Float 列，NaN 即缺失
func FloatSeries(values []float64, name string) series.Series {
	return series.New(values, series.Float, name)
}

// NullableSeries 由 []interface{} 构建指定类型的列，nil 即缺失
func NullableSeries(values []interface{}, t series.Type, name string) series.Series {
	return series.New(values, t, name)
}

func SaveToExcel(df dataframe.DataFrame, filePath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Sheet1"

	// 写入列名
	colNames := df.Names()
	for i, name := range colNames {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, name)
	}

	// 写入数据，缺失值留空
	for colIdx, colName := range colNames {
		col := df.Col(colName)
		for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
			e := col.Elem(rowIdx)
			if IsMissing(e) {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, e.Val())
		}
	}

	// 保存文件
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

// SaveToCSV 将DataFrame写为CSV
func SaveToCSV(df dataframe.DataFrame, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("创建CSV文件失败: %w", err)
	}
	defer file.Close()

	if err := df.WriteCSV(file); err != nil {
		return fmt.Errorf("写入CSV文件失败: %w", err)
	}
	return nil
}
