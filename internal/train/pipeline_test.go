package train

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ml-api/internal/common"
	"ml-api/internal/dataset"
	"ml-api/internal/loan"
	"ml-api/internal/ml"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// irisCSV writes 20 rows per species in well separated clusters plus one
// row with an extreme sepal width.
func irisCSV() string {
	var b strings.Builder
	b.WriteString("Id,SepalLengthCm,SepalWidthCm,PetalLengthCm,PetalWidthCm,Species\n")
	species := []struct {
		name                 string
		sepal, width, pl, pw float64
	}{
		{"Iris-setosa", 5.0, 3.4, 1.4, 0.2},
		{"Iris-versicolor", 5.9, 2.8, 4.2, 1.3},
		{"Iris-virginica", 6.6, 3.0, 5.6, 2.1},
	}
	id := 1
	for _, s := range species {
		for i := 0; i < 20; i++ {
			d := float64(i%5) * 0.02
			fmt.Fprintf(&b, "%d,%.2f,%.2f,%.2f,%.2f,%s\n", id, s.sepal+d, s.width+d, s.pl+d, s.pw+d, s.name)
			id++
		}
	}
	fmt.Fprintf(&b, "%d,5.0,40.0,1.4,0.2,Iris-setosa\n", id)
	return b.String()
}

// loanCSV writes applications whose approval follows Credit_History, with a
// few missing cells to impute.
func loanCSV() string {
	var b strings.Builder
	b.WriteString("Loan_ID,Gender,Married,Dependents,Education,Self_Employed,ApplicantIncome,CoapplicantIncome,LoanAmount,Loan_Amount_Term,Credit_History,Property_Area,Loan_Status\n")
	genders := []string{"Male", "Female"}
	married := []string{"Yes", "No"}
	deps := []string{"0", "1", "2", "3+"}
	edu := []string{"Graduate", "Not Graduate"}
	self := []string{"No", "Yes"}
	areas := []string{"Urban", "Rural", "Semiurban"}
	for i := 0; i < 60; i++ {
		credit, status := "1", "Y"
		if i%3 == 0 {
			credit, status = "0", "N"
		}
		gender := genders[i%2]
		if i == 7 {
			gender = ""
		}
		amount := fmt.Sprint(100 + (i%7)*10)
		if i%10 == 5 {
			amount = ""
		}
		fmt.Fprintf(&b, "LP%03d,%s,%s,%s,%s,%s,%d,%d,%s,360,%s,%s,%s\n",
			i, gender, married[i%2], deps[i%4], edu[i%2], self[i%2],
			3000+(i%4)*500, (i%5)*200, amount, credit, areas[(i/3)%3], status)
	}
	return b.String()
}

func TestTrainIris(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "Iris.csv", irisCSV())
	out := filepath.Join(dir, "iris-model")
	registry, err := ml.NewModelManager(filepath.Join(dir, "models"))
	require.NoError(t, err)

	res, err := TrainIris(Options{Dataset: data, OutDir: out, Seed: 42, Registry: registry})
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.Evaluation.Accuracy)
	assert.Equal(t, 48, res.Metrics.TrainingSamples)
	assert.Equal(t, 12, res.Metrics.TestSamples)
	assert.Equal(t, []string{"SepalLengthCm", "SepalWidthCm", "PetalLengthCm", "PetalWidthCm"}, res.Model.FeatureNames)
	assert.NotNil(t, res.Model.Scaler)
	assert.FileExists(t, filepath.Join(out, IrisModelFile))
	assert.FileExists(t, filepath.Join(out, IrisEncoderFile))

	require.NotNil(t, res.Version)
	current := registry.GetCurrentVersion(common.ModelIris)
	require.NotNil(t, current)
	assert.Equal(t, res.Version.Version, current.Version)
	assert.Equal(t, res.ModelPath, current.Path)
}

func TestTrainIris_BadDataset(t *testing.T) {
	dir := t.TempDir()

	_, err := TrainIris(Options{Dataset: filepath.Join(dir, "missing.csv"), OutDir: dir})
	assert.Error(t, err)

	noSpecies := writeFile(t, dir, "a.csv", "Id,a,b,c,d\n1,1,2,3,4\n")
	_, err = TrainIris(Options{Dataset: noSpecies, OutDir: dir})
	assert.ErrorIs(t, err, dataset.ErrNoColumn)

	narrow := writeFile(t, dir, "b.csv", "Id,a,Species\n1,1,x\n")
	_, err = TrainIris(Options{Dataset: narrow, OutDir: dir})
	assert.ErrorContains(t, err, "measurement columns")
}

func TestPrepareLoan(t *testing.T) {
	frame, err := dataset.Parse(strings.NewReader(loanCSV()))
	require.NoError(t, err)

	encoders, y, err := PrepareLoan(frame)
	require.NoError(t, err)

	assert.False(t, frame.Has(loan.ColLoanID))
	assert.Len(t, y, 60)
	assert.Equal(t, 0, y[0])
	assert.Equal(t, 1, y[1])

	var cols []string
	for col := range encoders {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	assert.Equal(t, []string{"Dependents", "Education", "Gender", "Married", "Property_Area", "Self_Employed"}, cols)
	assert.Equal(t, []string{"0", "1", "2", "3+"}, encoders[loan.ColDependents].Classes)
	assert.Equal(t, []string{"Female", "Male"}, encoders[loan.ColGender].Classes)

	for _, col := range frame.Columns {
		assert.Zero(t, frame.Missing(col), col)
	}
	_, err = frame.Matrix(loan.Columns)
	require.NoError(t, err)
}

func TestPrepareLoan_BadStatus(t *testing.T) {
	frame, err := dataset.Parse(strings.NewReader("Loan_ID,Gender,Loan_Status\nA,Male,Y\nB,Female,maybe\n"))
	require.NoError(t, err)
	_, _, err = PrepareLoan(frame)
	assert.ErrorContains(t, err, "want Y or N")

	frame, err = dataset.Parse(strings.NewReader("Loan_ID,Gender\nA,Male\n"))
	require.NoError(t, err)
	_, _, err = PrepareLoan(frame)
	assert.ErrorIs(t, err, dataset.ErrNoColumn)
}

func TestTrainLoan_ServesFromStore(t *testing.T) {
	dir := t.TempDir()
	registry, err := ml.NewModelManager(filepath.Join(dir, "models"))
	require.NoError(t, err)

	irisOut := filepath.Join(dir, "iris-model")
	_, err = TrainIris(Options{Dataset: writeFile(t, dir, "Iris.csv", irisCSV()), OutDir: irisOut, Seed: 42, Registry: registry})
	require.NoError(t, err)

	loanOut := filepath.Join(dir, "results")
	res, err := TrainLoan(Options{Dataset: writeFile(t, dir, "loan.csv", loanCSV()), OutDir: loanOut, Seed: 42, Registry: registry})
	require.NoError(t, err)

	assert.Len(t, res.Model.Trees, 100)
	assert.LessOrEqual(t, res.Evaluation.Accuracy, 1.0)
	assert.GreaterOrEqual(t, res.Evaluation.Accuracy, 0.8)
	assert.Equal(t, 48, res.Metrics.TrainingSamples)
	assert.Equal(t, 12, res.Metrics.TestSamples)
	assert.Contains(t, res.Report, "Approved (Y)")
	require.Len(t, res.Importances, len(loan.Columns))
	for i := 1; i < len(res.Importances); i++ {
		assert.GreaterOrEqual(t, res.Importances[i-1].Importance, res.Importances[i].Importance)
	}

	for _, name := range []string{LoanModelFile, LoanEncodersFile, LoanPredictionsFile, LoanImportanceFile} {
		assert.FileExists(t, filepath.Join(loanOut, name))
	}
	assert.Len(t, readCSV(t, filepath.Join(loanOut, LoanPredictionsFile)), 13)

	store, err := ml.LoadStore(ml.Paths{
		IrisModel:    filepath.Join(irisOut, IrisModelFile),
		IrisEncoder:  filepath.Join(irisOut, IrisEncoderFile),
		LoanModel:    filepath.Join(loanOut, LoanModelFile),
		LoanEncoders: filepath.Join(loanOut, LoanEncodersFile),
	})
	require.NoError(t, err)

	dependents := "3+"
	app := loan.Application{
		Gender: "Male", Married: "Yes", Dependents: &dependents, Education: "Graduate",
		ApplicantIncome: 4000, CoapplicantIncome: 500, LoanAmount: 130, LoanAmountTerm: 360,
		CreditHistory: 1, PropertyArea: "Urban",
	}
	approved, err := store.LoanTable.Encode(app)
	require.NoError(t, err)
	app.CreditHistory = 0
	rejected, err := store.LoanTable.Encode(app)
	require.NoError(t, err)

	pred, err := store.Loan.Predict([][]float64{approved, rejected})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, pred)

	info := store.Describe(registry)
	require.NotNil(t, info[common.ModelLoan].ActiveRecord)
	assert.Equal(t, res.Version.Version, info[common.ModelLoan].ActiveRecord.Version)
	assert.LessOrEqual(t, info[common.ModelLoan].MaxDepth, 10)
}
