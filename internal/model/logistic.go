package model

import (
	"fmt"
	"math"
)

// Logistic is a fitted binary logistic regression.
type Logistic struct {
	coef      []float64
	intercept float64
}

func NewLogistic(coef []float64, intercept float64) (*Logistic, error) {
	if len(coef) == 0 {
		return nil, fmt.Errorf("%w: logistic model has no coefficients", ErrInvalidModel)
	}
	for i, c := range coef {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("%w: coefficient %d is not finite", ErrInvalidModel, i)
		}
	}
	return &Logistic{coef: append([]float64(nil), coef...), intercept: intercept}, nil
}

func (l *Logistic) Kind() string     { return KindLogistic }
func (l *Logistic) NumFeatures() int { return len(l.coef) }

func (l *Logistic) Coefficients() []float64 { return append([]float64(nil), l.coef...) }
func (l *Logistic) Intercept() float64      { return l.intercept }

// DecisionFunction returns the log-odds of the positive class.
func (l *Logistic) DecisionFunction(row []float64) (float64, error) {
	if err := checkRow(row, len(l.coef)); err != nil {
		return 0, err
	}
	z := l.intercept
	for i, c := range l.coef {
		z += c * row[i]
	}
	return z, nil
}

func (l *Logistic) PredictProba(row []float64) ([]float64, error) {
	z, err := l.DecisionFunction(row)
	if err != nil {
		return nil, err
	}
	p := Sigmoid(z)
	return []float64{1 - p, p}, nil
}
