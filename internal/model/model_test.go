package model

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func rawRow(household, retail, foodService float64) FeatureRow {
	return FeatureRow{
		Columns: FeatureColumns(),
		Values:  []float64{household, retail, foodService},
	}
}

var _ = Describe("FeatureColumns", func() {
	It("should list the fitted column order", func() {
		Expect(FeatureColumns()).To(Equal([]string{
			"Household estimate (kg/capita/year)",
			"Retail estimate (kg/capita/year)",
			"Food service estimate (kg/capita/year)",
		}))
	})

	It("should return a copy each time", func() {
		columns := FeatureColumns()
		columns[0] = "mutated"
		Expect(FeatureColumns()[0]).To(Equal(ColumnHousehold))
	})
})

var _ = Describe("Scaler", func() {
	Context("standard kind", func() {
		var scaler Scaler

		BeforeEach(func() {
			var err error
			scaler, err = LoadScaler(filepath.Join("testdata", "scaler.yaml"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should centre and scale every column", func() {
			scaled, err := scaler.Transform(rawRow(45.5, 20.3, 15.2))
			Expect(err).NotTo(HaveOccurred())
			Expect(scaled.Columns).To(Equal(FeatureColumns()))
			Expect(scaled.Values[0]).To(BeNumerically("~", -0.45, 1e-12))
			Expect(scaled.Values[1]).To(BeNumerically("~", 2.06, 1e-12))
			Expect(scaled.Values[2]).To(BeNumerically("~", -1.2, 1e-12))
		})

		It("should not modify its input row", func() {
			row := rawRow(45.5, 20.3, 15.2)
			_, err := scaler.Transform(row)
			Expect(err).NotTo(HaveOccurred())
			Expect(row.Values).To(Equal([]float64{45.5, 20.3, 15.2}))
		})

		It("should reject rows with reordered columns", func() {
			row := FeatureRow{
				Columns: []string{ColumnRetail, ColumnHousehold, ColumnFoodService},
				Values:  []float64{1, 2, 3},
			}
			_, err := scaler.Transform(row)
			Expect(errors.Is(err, ErrFeatureNames)).To(BeTrue())
		})

		It("should reject rows of the wrong width", func() {
			row := FeatureRow{Columns: []string{ColumnHousehold}, Values: []float64{1}}
			_, err := scaler.Transform(row)
			Expect(errors.Is(err, ErrShapeMismatch)).To(BeTrue())
		})
	})

	Context("minmax kind", func() {
		It("should apply x*scale + min", func() {
			scaler, err := NewScaler(ScalerArtifact{
				Kind:  "MinMax",
				Scale: []float64{0.01, 0.02, 0.5},
				Min:   []float64{0, -1, 0.25},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(scaler.Kind()).To(Equal(ScalerKindMinMax))

			scaled, err := scaler.Transform(rawRow(50, 50, 1))
			Expect(err).NotTo(HaveOccurred())
			Expect(scaled.Values[0]).To(BeNumerically("~", 0.5, 1e-12))
			Expect(scaled.Values[1]).To(BeNumerically("~", 0.0, 1e-12))
			Expect(scaled.Values[2]).To(BeNumerically("~", 0.75, 1e-12))
		})
	})

	Context("constant columns", func() {
		It("should only centre a zero-scale column", func() {
			scaler, err := NewScaler(ScalerArtifact{
				Kind:  ScalerKindStandard,
				Mean:  []float64{5, 0, 0},
				Scale: []float64{0, 1, 1},
			})
			Expect(err).NotTo(HaveOccurred())
			scaled, err := scaler.Transform(rawRow(7, 0, 0))
			Expect(err).NotTo(HaveOccurred())
			Expect(scaled.Values[0]).To(Equal(2.0))
		})
	})

	DescribeTable("invalid artifacts",
		func(artifact ScalerArtifact) {
			_, err := NewScaler(artifact)
			Expect(errors.Is(err, ErrInvalidArtifact)).To(BeTrue())
		},
		Entry("missing kind", ScalerArtifact{Mean: []float64{1}, Scale: []float64{1}}),
		Entry("unknown kind", ScalerArtifact{Kind: "robust", Mean: []float64{1}, Scale: []float64{1}}),
		Entry("no means", ScalerArtifact{Kind: ScalerKindStandard}),
		Entry("length mismatch", ScalerArtifact{Kind: ScalerKindStandard, Mean: []float64{1, 2}, Scale: []float64{1}}),
		Entry("names mismatch", ScalerArtifact{
			Kind:         ScalerKindStandard,
			FeatureNames: []string{"a"},
			Mean:         []float64{1, 2},
			Scale:        []float64{1, 1},
		}),
		Entry("duplicate names", ScalerArtifact{
			Kind:         ScalerKindStandard,
			FeatureNames: []string{"a", "a"},
			Mean:         []float64{1, 2},
			Scale:        []float64{1, 1},
		}),
		Entry("minmax without mins", ScalerArtifact{Kind: ScalerKindMinMax, Scale: []float64{1}}),
	)
})

var _ = Describe("Regressor", func() {
	Context("linear kind", func() {
		It("should evaluate intercept plus weighted sum", func() {
			model, err := LoadRegressor(filepath.Join("testdata", "linear.json"))
			Expect(err).NotTo(HaveOccurred())
			Expect(model.Kind()).To(Equal(ModelKindLinear))

			scaled := rawRow(-0.45, 2.06, -1.2)
			prediction, err := model.Predict(scaled)
			Expect(err).NotTo(HaveOccurred())
			Expect(prediction).To(BeNumerically("~", 100.56, 1e-9))
		})

		It("should reject rows whose names differ from the fitted ones", func() {
			model, err := LoadRegressor(filepath.Join("testdata", "linear.json"))
			Expect(err).NotTo(HaveOccurred())
			row := FeatureRow{Columns: []string{"a", "b", "c"}, Values: []float64{1, 2, 3}}
			_, err = model.Predict(row)
			Expect(errors.Is(err, ErrFeatureNames)).To(BeTrue())
		})
	})

	Context("forest kind", func() {
		var model Regressor

		BeforeEach(func() {
			var err error
			model, err = LoadRegressor(filepath.Join("testdata", "forest.yaml"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should average tree outputs going left on equality", func() {
			prediction, err := model.Predict(rawRow(0, 5, 5))
			Expect(err).NotTo(HaveOccurred())
			Expect(prediction).To(Equal(20.0))
		})

		It("should follow the right branch above the threshold", func() {
			prediction, err := model.Predict(rawRow(0.1, 5, 5))
			Expect(err).NotTo(HaveOccurred())
			Expect(prediction).To(Equal(25.0))
		})
	})

	DescribeTable("invalid artifacts",
		func(artifact ModelArtifact) {
			_, err := NewRegressor(artifact)
			Expect(errors.Is(err, ErrInvalidArtifact)).To(BeTrue())
		},
		Entry("missing kind", ModelArtifact{Coefficients: []float64{1}}),
		Entry("unknown kind", ModelArtifact{Kind: "svr"}),
		Entry("linear without coefficients", ModelArtifact{Kind: ModelKindLinear}),
		Entry("linear width mismatch", ModelArtifact{Kind: ModelKindLinear, NFeatures: 2, Coefficients: []float64{1, 2, 3}}),
		Entry("forest without width", ModelArtifact{Kind: ModelKindForest, Trees: []TreeArtifact{{
			ChildrenLeft: []int{-1}, ChildrenRight: []int{-1}, Feature: []int{-2}, Threshold: []float64{0}, Value: []float64{1},
		}}}),
		Entry("tree with two trees", ModelArtifact{Kind: ModelKindTree, NFeatures: 1, Trees: []TreeArtifact{{}, {}}}),
		Entry("cyclic tree", ModelArtifact{Kind: ModelKindForest, NFeatures: 1, Trees: []TreeArtifact{{
			ChildrenLeft: []int{0}, ChildrenRight: []int{0}, Feature: []int{0}, Threshold: []float64{0}, Value: []float64{1},
		}}}),
		Entry("split on unknown feature", ModelArtifact{Kind: ModelKindForest, NFeatures: 1, Trees: []TreeArtifact{{
			ChildrenLeft:  []int{1, -1, -1},
			ChildrenRight: []int{2, -1, -1},
			Feature:       []int{3, -2, -2},
			Threshold:     []float64{0, 0, 0},
			Value:         []float64{0, 1, 2},
		}}}),
	)
})

var _ = Describe("Loading", func() {
	It("should fail for a missing file", func() {
		_, err := LoadScaler(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
		Expect(err).To(HaveOccurred())
	})

	It("should fail for an empty file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "empty.yaml")
		Expect(os.WriteFile(path, nil, 0o644)).To(Succeed())
		_, err := LoadRegressor(path)
		Expect(err).To(MatchError(ContainSubstring("is empty")))
	})

	It("should fail for a directory", func() {
		_, err := LoadRegressor(GinkgoT().TempDir())
		Expect(err).To(MatchError(ContainSubstring("is a directory")))
	})

	It("should reject unknown fields", func() {
		path := filepath.Join(GinkgoT().TempDir(), "scaler.yaml")
		Expect(os.WriteFile(path, []byte("kind: standard\nmean: [1]\nscale: [1]\nwith_mean: true\n"), 0o644)).To(Succeed())
		_, err := LoadScaler(path)
		Expect(errors.Is(err, ErrInvalidArtifact)).To(BeTrue())
	})

	It("should require a path", func() {
		_, err := LoadScaler("  ")
		Expect(err).To(MatchError(ContainSubstring("path is required")))
	})
})
