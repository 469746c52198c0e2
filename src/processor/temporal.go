package processor

import (
	"strings"
	"time"

	"ThermalComfort/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// UnknownGroup 日期无法解析的行的分组标签
const UnknownGroup = "unknown"

// MonthYearLayout 分组标签格式，如 "01-2025"
const MonthYearLayout = "01-2006"

// TemporalGrouper 由日期(和时间)列派生月份-年份分组列
type TemporalGrouper struct {
	DateColumn   string
	TimeColumn   string
	OutputColumn string
}

// Group 输出列(或其 "_" 写法)已存在、或日期列不存在时原样返回
func (g TemporalGrouper) Group(df dataframe.DataFrame) dataframe.DataFrame {
	if g.OutputColumn == "" || g.hasOutput(df) || !utils.HasColumn(df, g.DateColumn) {
		return df
	}

	dates := df.Col(g.DateColumn)
	var clocks *series.Series
	if g.TimeColumn != "" && utils.HasColumn(df, g.TimeColumn) {
		c := df.Col(g.TimeColumn)
		clocks = &c
	}

	labels := make([]string, dates.Len())
	for i := range labels {
		ts, ok := g.timestamp(dates.Elem(i), clocks, i)
		if !ok {
			labels[i] = UnknownGroup
			continue
		}
		labels[i] = ts.Format(MonthYearLayout)
	}
	return df.Mutate(series.New(labels, series.String, g.OutputColumn))
}

func (g TemporalGrouper) hasOutput(df dataframe.DataFrame) bool {
	return utils.HasColumn(df, g.OutputColumn) ||
		utils.HasColumn(df, strings.ReplaceAll(g.OutputColumn, "-", "_"))
}

// timestamp 合并日期和时间；时间缺失时只用日期
func (g TemporalGrouper) timestamp(date series.Element, clocks *series.Series, i int) (time.Time, bool) {
	if utils.IsMissing(date) {
		return time.Time{}, false
	}
	day, _, ok := ParseDate(utils.ValueString(date))
	if !ok {
		return time.Time{}, false
	}
	if clocks == nil {
		return day, true
	}
	if e := clocks.Elem(i); !utils.IsMissing(e) {
		if c, ok := ParseClock(utils.ValueString(e)); ok {
			return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), c.Second(), 0, time.UTC), true
		}
	}
	return day, true
}
