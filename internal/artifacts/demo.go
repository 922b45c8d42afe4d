package artifacts

import (
	"fmt"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/attribution"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/model"
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/schema"
)

// demoNode describes a tree top-down; covers of internal nodes are derived.
type demoNode struct {
	feature     string
	threshold   float64
	left, right *demoNode
	cover, p    float64
}

func split(feature string, threshold float64, left, right *demoNode) *demoNode {
	return &demoNode{feature: feature, threshold: threshold, left: left, right: right}
}

func leaf(cover, p float64) *demoNode {
	return &demoNode{cover: cover, p: p}
}

// demoForest is a small hand-set forest over the sepsis features. It stands in
// for the offline training job so the service can run end to end; its numbers
// are illustrative, not clinical.
var demoForest = []*demoNode{
	split("SOFA", 6,
		split("GCS", 12, leaf(60, 0.45), leaf(240, 0.12)),
		split("MV", 0.5, leaf(50, 0.40), leaf(90, 0.72))),
	split("NBPS", 95,
		split("NOR", 0.5, leaf(40, 0.38), leaf(60, 0.70)),
		split("SAPSII", 45, leaf(250, 0.14), leaf(90, 0.42))),
	split("BUN", 35,
		split("BALANCE", 3000, leaf(260, 0.13), leaf(70, 0.35)),
		split("CRRT", 0.5, leaf(70, 0.46), leaf(40, 0.74))),
	split("OASIS", 35,
		split("HGB", 9, leaf(60, 0.33), leaf(220, 0.11)),
		split("T", 38.3, leaf(100, 0.48), leaf(60, 0.66))),
	split("WBC", 12,
		split("ANION_GAP", 16, leaf(210, 0.12), leaf(60, 0.30)),
		split("CR", 2, leaf(90, 0.38), leaf(80, 0.60))),
	split("RR", 24,
		split("INRPT", 1.5, leaf(230, 0.13), leaf(50, 0.31)),
		split("SODIUM", 145, leaf(80, 0.44), leaf(50, 0.58))),
	split("BS", 180,
		split("CHLORIDE", 110, leaf(240, 0.15), leaf(60, 0.29)),
		split("SOFA", 8, leaf(60, 0.37), leaf(50, 0.62))),
}

// DemoModel builds the demo random forest against s.
func DemoModel(s *schema.Schema) (*model.Artifact, error) {
	trees := make([]model.Tree, 0, len(demoForest))
	for _, root := range demoForest {
		var nodes []model.Node
		if _, err := flatten(s, root, &nodes); err != nil {
			return nil, err
		}
		trees = append(trees, model.Tree{Nodes: nodes})
	}

	return &model.Artifact{
		Kind:         model.KindRandomForest,
		Classes:      []int{0, 1},
		FeatureNames: s.Names(),
		Trees:        trees,
	}, nil
}

// flatten appends n in pre-order so children always follow their parent, and
// returns the cover of the subtree.
func flatten(s *schema.Schema, n *demoNode, nodes *[]model.Node) (float64, error) {
	i := len(*nodes)
	if n.left == nil {
		*nodes = append(*nodes, model.Node{Left: -1, Right: -1, Cover: n.cover, Value: []float64{1 - n.p, n.p}})
		return n.cover, nil
	}

	f, ok := s.Index(n.feature)
	if !ok {
		return 0, fmt.Errorf("demo model splits on %s, which is not in the schema", n.feature)
	}
	*nodes = append(*nodes, model.Node{Feature: f, Threshold: n.threshold})

	(*nodes)[i].Left = len(*nodes)
	lc, err := flatten(s, n.left, nodes)
	if err != nil {
		return 0, err
	}
	(*nodes)[i].Right = len(*nodes)
	rc, err := flatten(s, n.right, nodes)
	if err != nil {
		return 0, err
	}
	(*nodes)[i].Cover = lc + rc
	return lc + rc, nil
}

// Bootstrap writes a complete demo artifact set: feature info with metadata,
// the demo forest and a tree explainer bound to it.
func (s *Store) Bootstrap(sch *schema.Schema, output attribution.Output) error {
	ma, err := DemoModel(sch)
	if err != nil {
		return err
	}

	clf, err := model.FromArtifact(*ma)
	if err != nil {
		return err
	}
	forest, ok := clf.(*model.Forest)
	if !ok {
		return fmt.Errorf("demo model is %s, not a forest", clf.Kind())
	}
	te, err := attribution.NewTreeExplainer(forest, output)
	if err != nil {
		return err
	}
	ev := te.ExpectedValue()

	if err := s.SaveFeatureInfo(&FeatureInfo{
		FeatureCols: sch.Names(),
		TargetCol:   sch.Target(),
		Features:    sch.Specs(),
	}); err != nil {
		return err
	}
	if err := s.SaveModel(ma); err != nil {
		return err
	}
	return s.SaveExplainer(&attribution.Artifact{
		Kind:          attribution.KindTree,
		Output:        output,
		ExpectedValue: ev[:],
	})
}
