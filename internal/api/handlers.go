package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"ml-api/internal/common"
	"ml-api/internal/loan"
	"ml-api/internal/ml"
	"ml-api/internal/model"
	"ml-api/internal/predict"
	"ml-api/internal/storage"
)

// maxBodyBytes caps request bodies; a full batch of applications fits well
// within it.
const maxBodyBytes = 8 << 20

var loanLabels = predict.LabelTable(loan.Labels)

// IrisRequest is the body of POST /iris/predict.
type IrisRequest struct {
	Data [][]float64 `json:"data"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (s *Server) handleIrisPredict(w http.ResponseWriter, r *http.Request) {
	var req IrisRequest
	if e := decodeBody(w, r, &req); e != nil {
		s.recorder.ValidationFailuresInc(common.ModelIris)
		writeError(w, e)
		return
	}
	if errs := validateIris(req); len(errs) > 0 {
		s.recorder.ValidationFailuresInc(common.ModelIris)
		writeError(w, invalidInput(common.ErrMsgValidationFailed, errs))
		return
	}

	resp, err := s.run(common.ModelIris, s.iris, req.Data, s.store.IrisLabels)
	if err != nil {
		log.Error().Err(err).Str("request_id", RequestID(r.Context())).Msg("iris prediction failed")
		writeError(w, predictionFailed(err))
		return
	}

	inputs := make([]interface{}, len(req.Data))
	for i, row := range req.Data {
		inputs[i] = row
	}
	s.auditAll(r.Context(), common.ModelIris, s.store.Iris, inputs, req.Data, resp)
	writeJSON(w, http.StatusOK, resp)
}

func validateIris(req IrisRequest) []string {
	if req.Data == nil {
		return []string{"data is required"}
	}
	if len(req.Data) == 0 {
		return []string{"data must contain at least one sample"}
	}
	var errs []string
	for i, row := range req.Data {
		if len(row) != common.IrisFeatures {
			errs = append(errs, fmt.Sprintf("sample %d has %d features, expected %d", i, len(row), common.IrisFeatures))
		}
	}
	return errs
}

func (s *Server) handleLoanPredict(w http.ResponseWriter, r *http.Request) {
	var p loan.Payload
	if e := decodeBody(w, r, &p); e != nil {
		s.recorder.ValidationFailuresInc(common.ModelLoan)
		writeError(w, e)
		return
	}

	resp, e := s.predictLoan(r.Context(), p)
	if e != nil {
		writeError(w, e)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// predictLoan runs one application end to end. It is shared by the single
// request handler and the stream.
func (s *Server) predictLoan(ctx context.Context, p loan.Payload) (predict.Response, *Error) {
	x, errs := s.prepareLoan(p)
	if len(errs) > 0 {
		s.recorder.ValidationFailuresInc(common.ModelLoan)
		return predict.Response{}, invalidInput(common.ErrMsgValidationFailed, errs)
	}

	X := [][]float64{x}
	resp, err := s.run(common.ModelLoan, s.loan, X, loanLabels)
	if err != nil {
		log.Error().Err(err).Str("request_id", RequestID(ctx)).Msg("loan prediction failed")
		return predict.Response{}, predictionFailed(err)
	}

	s.auditAll(ctx, common.ModelLoan, s.store.Loan, []interface{}{p}, X, resp)
	return resp, nil
}

func (s *Server) handleLoanBatch(w http.ResponseWriter, r *http.Request) {
	var batch loan.BatchPayload
	if e := decodeBody(w, r, &batch); e != nil {
		s.recorder.ValidationFailuresInc(common.ModelLoan)
		writeError(w, e)
		return
	}
	if batch.Applications == nil {
		s.recorder.ValidationFailuresInc(common.ModelLoan)
		writeError(w, invalidInput(common.ErrMsgValidationFailed, []string{"applications is required"}))
		return
	}
	n := len(batch.Applications)
	if n > s.maxBatch {
		s.recorder.ValidationFailuresInc(common.ModelLoan)
		writeError(w, invalidInput(common.ErrMsgBatchTooLarge,
			[]string{fmt.Sprintf("batch has %d applications, maximum is %d", n, s.maxBatch)}))
		return
	}
	s.recorder.BatchSizeObserve(n)

	// Every item is validated and encoded before any prediction runs, so the
	// first invalid index aborts the batch with nothing evaluated.
	X := make([][]float64, n)
	for i, p := range batch.Applications {
		x, errs := s.prepareLoan(p)
		if len(errs) > 0 {
			s.recorder.ValidationFailuresInc(common.ModelLoan)
			writeError(w, invalidInputAt(i, errs))
			return
		}
		X[i] = x
	}

	resp := predict.NewResponse()
	for i, x := range X {
		item, err := s.run(common.ModelLoan, s.loan, [][]float64{x}, loanLabels)
		if err != nil {
			log.Error().Err(err).Int("index", i).Str("request_id", RequestID(r.Context())).Msg("batch prediction failed")
			writeError(w, predictionFailedAt(i, err))
			return
		}
		resp.Prediction = append(resp.Prediction, item.Prediction...)
		resp.PredictionName = append(resp.PredictionName, item.PredictionName...)
		resp.Proba = append(resp.Proba, item.Proba...)
	}

	inputs := make([]interface{}, n)
	for i, p := range batch.Applications {
		inputs[i] = p
	}
	s.auditAll(r.Context(), common.ModelLoan, s.store.Loan, inputs, X, resp)
	writeJSON(w, http.StatusOK, resp)
}

// prepareLoan turns a wire payload into a feature vector. The returned
// messages are the INVALID_INPUT details for the payload. Missing required
// fields are reported on their own, without running the rule checks.
func (s *Server) prepareLoan(p loan.Payload) ([]float64, []string) {
	app, missing := p.Application()
	if len(missing) > 0 {
		return nil, missing
	}
	if errs := loan.Validate(app); len(errs) > 0 {
		return nil, errs
	}
	x, err := s.store.LoanTable.Encode(app)
	if err != nil {
		return nil, []string{err.Error()}
	}
	return x, nil
}

// run predicts X with adapter and labels the result.
func (s *Server) run(name string, adapter *predict.Adapter, X [][]float64, labels predict.LabelTable) (predict.Response, error) {
	start := time.Now()
	preds, proba, err := adapter.Predict(X)
	var resp predict.Response
	if err == nil {
		resp, err = predict.Build(preds, proba, labels)
	}
	s.recorder.LatencyObserve(name, time.Since(start).Seconds())
	if err != nil {
		s.recorder.FailuresInc(name)
		return predict.Response{}, err
	}
	s.recorder.PredictionsAdd(name, len(preds))
	return resp, nil
}

// auditAll stores one record per served prediction. Audit failures are
// logged and counted but never fail the request.
func (s *Server) auditAll(ctx context.Context, name string, m *model.Model, inputs []interface{}, X [][]float64, resp predict.Response) {
	if s.audit == nil {
		return
	}
	requestID := RequestID(ctx)
	now := time.Now()
	for i := range resp.Prediction {
		raw, _ := json.Marshal(inputs[i])
		record := storage.PredictionRecord{
			RequestID:  requestID,
			Model:      name,
			Version:    m.Version,
			Timestamp:  now,
			Input:      raw,
			Features:   X[i],
			Prediction: resp.Prediction[i],
			Label:      resp.PredictionName[i],
			Proba:      resp.Proba[i],
		}
		if err := s.audit.StorePrediction(record); err != nil {
			s.recorder.AuditWriteErrorsInc()
			log.Warn().Err(err).Str("request_id", requestID).Str("model", name).Msg("failed to store prediction record")
		}
	}
}

// ModelInfoResponse is the body of GET /model/info.
type ModelInfoResponse struct {
	Models   map[string]ml.Info `json:"models"`
	LoadedAt time.Time          `json:"loaded_at"`
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	s.observeModelAge()
	writeJSON(w, http.StatusOK, ModelInfoResponse{
		Models:   s.store.Describe(s.registry),
		LoadedAt: s.store.LoadedAt,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) *Error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return invalidInput(common.ErrMsgMalformedBody, []string{err.Error()})
	}
	return nil
}
