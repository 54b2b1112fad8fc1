package classifier

// Metrics are computed on the held-out split. Ratios with a zero
// denominator are reported as 0.
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	TrainRows int     `json:"train_rows"`
	TestRows  int     `json:"test_rows"`
}

// Evaluate scores binary predictions against the true labels.
func Evaluate(truth, predicted []int) Metrics {
	var tp, fp, fn, correct int
	for i := range truth {
		t, p := truth[i], predicted[i]
		if t == p {
			correct++
		}
		switch {
		case t == 1 && p == 1:
			tp++
		case t == 0 && p == 1:
			fp++
		case t == 1 && p == 0:
			fn++
		}
	}

	m := Metrics{
		Accuracy:  ratio(correct, len(truth)),
		Precision: ratio(tp, tp+fp),
		Recall:    ratio(tp, tp+fn),
		TestRows:  len(truth),
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
