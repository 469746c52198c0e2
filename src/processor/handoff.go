package processor

import (
	"context"
	"fmt"

	"ThermalComfort/src/utils"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"
)

// Trainer 外部自动建模组件: 接收特征表和目标列名，返回按得分排序的模型对比表
type Trainer interface {
	Compare(ctx context.Context, features dataframe.DataFrame, target string) (dataframe.DataFrame, error)
}

// ResolveTarget 依次尝试完全匹配、忽略大小写、"-"/"_" 互换
func ResolveTarget(df dataframe.DataFrame, target string) (string, error) {
	if col, ok := utils.ResolveColumn(df, target); ok {
		return col, nil
	}
	return "", fmt.Errorf("%w: %q", ErrTargetNotFound, target)
}

// FeatureMatrix 数值特征矩阵(不含目标列)、列名和目标向量，缺失值为 NaN
func FeatureMatrix(df dataframe.DataFrame, target string) (*mat.Dense, []string, []float64, error) {
	col, err := ResolveTarget(df, target)
	if err != nil {
		return nil, nil, nil, err
	}
	if !utils.IsNumeric(df.Col(col)) {
		return nil, nil, nil, fmt.Errorf("target column %q is not numeric", col)
	}

	var names []string
	for _, name := range df.Names() {
		if name != col && utils.IsNumeric(df.Col(name)) {
			names = append(names, name)
		}
	}
	if len(names) == 0 || df.Nrow() == 0 {
		return nil, nil, nil, fmt.Errorf("no numeric features")
	}

	x := mat.NewDense(df.Nrow(), len(names), nil)
	for j, name := range names {
		for i, v := range utils.Floats(df.Col(name)) {
			x.Set(i, j, v)
		}
	}
	return x, names, utils.Floats(df.Col(col)), nil
}

// Handoff 解析目标列后交给外部训练组件
func Handoff(ctx context.Context, trainer Trainer, df dataframe.DataFrame, target string) (dataframe.DataFrame, error) {
	col, err := ResolveTarget(df, target)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	ranking, err := trainer.Compare(ctx, df, col)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("model comparison failed: %w", err)
	}
	return ranking, nil
}
