package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leakscan/internal/business"
	"leakscan/internal/business/dataset"
	"leakscan/internal/domains/common/job"
	"leakscan/pkg/errorutil"
	"leakscan/pkg/ginx"
	"leakscan/pkg/sessionstore"
)

// Predict 上传账单文件并执行分析
// POST /api/v1/:domain/predict?mode=async
// 默认同步：请求内完成整条流水线并返回结果；
// mode=async 时落盘后投递队列任务，返回轮询地址
func (h *AnalysisHandler) Predict(c *gin.Context) {
	ctx := c.Request.Context()

	// 1. 校验业务域
	domain := c.Param("domain")
	svc, ok := h.services[domain]
	if !ok {
		ginx.BadRequest(c, fmt.Sprintf("unsupported domain: %s", domain))
		return
	}

	// 2. 接收上传文件（限制请求体大小）
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			ginx.BadRequest(c, fmt.Sprintf("uploaded file exceeds limit of %d bytes", h.maxUpload))
			return
		}
		ginx.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		ginx.BadRequest(c, "only csv files are supported")
		return
	}

	// 3. 落盘（文件名带会话 ID，避免覆盖）
	sessionID := uuid.New().String()
	uploadPath := filepath.Join(h.uploadDir, fmt.Sprintf("%s_%s", sessionID, filepath.Base(header.Filename)))
	if err := saveUpload(file, uploadPath); err != nil {
		h.logger.Errorf(ctx, "[Predict] save upload failed: %v", err)
		ginx.InternalError(c, "failed to save upload")
		return
	}

	// 4. 异步模式：写入 PROCESSING 会话并投递任务
	if c.Query("mode") == "async" {
		if h.publisher == nil || h.jobQueue == "" {
			ginx.BadRequest(c, "async mode is not enabled")
			return
		}
		h.enqueue(c, domain, sessionID, uploadPath, header.Filename)
		return
	}

	// 5. 同步模式：请求内执行整条流水线
	ds, err := dataset.ReadCSVFile(uploadPath)
	if err != nil {
		ginx.BadRequest(c, fmt.Sprintf("failed to parse csv: %v", err))
		return
	}

	res, err := svc.Analyze(ctx, ds, sessionID)
	if err != nil {
		h.logger.Errorf(ctx, "[Predict] analyze failed: %v", err)
		h.saveRecord(c, sessionID, domain, header.Filename, nil, err)
		if errorutil.IsDegenerate(err) {
			ginx.BadRequest(c, err.Error())
		} else {
			ginx.InternalError(c, err.Error())
		}
		return
	}

	// 6. 整改建议（尽力而为）
	if h.recommender != nil {
		if text, recErr := h.recommender.Recommend(ctx, domain, res.Summary); recErr == nil {
			res.Recommendations = text
		} else {
			h.logger.Warnf(ctx, "[Predict] recommendation failed: %v", recErr)
		}
	}

	h.saveRecord(c, sessionID, domain, header.Filename, res, nil)
	ginx.Success(c, res)
}

// enqueue 投递异步分析任务
func (h *AnalysisHandler) enqueue(c *gin.Context, domain, sessionID, uploadPath, filename string) {
	ctx := c.Request.Context()

	record := &sessionstore.Record{
		SessionID: sessionID,
		Domain:    domain,
		Filename:  filename,
		Status:    sessionstore.StatusProcessing,
		CreatedAt: time.Now(),
	}
	if err := h.store.Put(ctx, record); err != nil {
		h.logger.Errorf(ctx, "[Predict] store put failed: %v", err)
		ginx.InternalError(c, "failed to create session")
		return
	}

	payload := &job.Job{
		Payload: &job.JobPayload{
			Data: &job.JobPayloadData{
				RequestID:  uuid.New().String(),
				ActionType: domain + "_analyze",
				SessionID:  sessionID,
				Domain:     domain,
				Data: map[string]interface{}{
					"file_path": uploadPath,
					"filename":  filename,
				},
			},
		},
	}

	if err := h.publisher.PublishJSON(h.jobQueue, payload, 0, 0); err != nil {
		h.logger.Errorf(ctx, "[Predict] publish job failed: %v", err)
		ginx.InternalError(c, "failed to enqueue analysis job")
		return
	}

	ginx.Processing(c, sessionID, "/api/v1/results/"+sessionID)
}

// saveRecord 会话落库（同步路径）
func (h *AnalysisHandler) saveRecord(c *gin.Context, sessionID, domain, filename string, res *business.Result, procErr error) {
	ctx := c.Request.Context()

	record := &sessionstore.Record{
		SessionID: sessionID,
		Domain:    domain,
		Filename:  filename,
		Status:    sessionstore.StatusAnalyzed,
		CreatedAt: time.Now(),
	}
	if procErr != nil {
		record.Status = sessionstore.StatusFailed
		record.Error = procErr.Error()
	} else if res != nil {
		if data, err := json.Marshal(res); err == nil {
			record.ResultJSON = data
		}
		record.SavedFiles = res.SavedFiles
	}

	if err := h.store.Put(ctx, record); err != nil {
		h.logger.Errorf(ctx, "[Predict] store put failed: %v", err)
	}
}

// saveUpload 将上传内容写到目标路径
func saveUpload(src io.Reader, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}
