package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"idea-incubator-backend/pkg/apperrors"
	"idea-incubator-backend/pkg/logging"
)

// APIResponse 标准API响应结构
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// APIError 错误信息结构
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Meta 元数据结构（用于分页等）
type Meta struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, statusCode int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// 头部已写出，只能记录
		logging.Component("http").WithError(err).Error("❌ Failed to encode response")
	}
}

// WriteJSONResponse 写入JSON响应
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	writeEnvelope(w, statusCode, APIResponse{
		Success: statusCode >= 200 && statusCode < 300,
		Data:    data,
	})
}

// WriteSuccessResponse 写入成功响应
func WriteSuccessResponse(w http.ResponseWriter, data interface{}) {
	WriteJSONResponse(w, http.StatusOK, data)
}

// WriteCreatedResponse 写入创建成功响应
func WriteCreatedResponse(w http.ResponseWriter, data interface{}) {
	WriteJSONResponse(w, http.StatusCreated, data)
}

// WriteErrorResponseWithCode 写入带错误代码的错误响应
func WriteErrorResponseWithCode(w http.ResponseWriter, statusCode int, code, message string, details interface{}) {
	writeEnvelope(w, statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteError 把领域错误映射为状态码与错误代码。内部错误只返回通用消息。
func WriteError(w http.ResponseWriter, err error) {
	e := apperrors.As(err)
	if e.Kind == apperrors.KindInternal {
		logging.Component("http").WithError(e.Cause).Error("❌ Internal error")
		WriteInternalServerErrorResponse(w, "Internal server error")
		return
	}
	WriteErrorResponseWithCode(w, e.Kind.HTTPStatus(), string(e.Kind), e.Message, e.Details)
}

// WriteBadRequestResponse 写入400错误响应
func WriteBadRequestResponse(w http.ResponseWriter, message string) {
	WriteErrorResponseWithCode(w, http.StatusBadRequest, "BAD_REQUEST", message, nil)
}

// WriteUnauthorizedResponse 写入401错误响应
func WriteUnauthorizedResponse(w http.ResponseWriter, message string) {
	WriteErrorResponseWithCode(w, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

// WriteNotFoundResponse 写入404错误响应
func WriteNotFoundResponse(w http.ResponseWriter, message string) {
	WriteErrorResponseWithCode(w, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// WriteTooManyRequestsResponse 写入429错误响应
func WriteTooManyRequestsResponse(w http.ResponseWriter, message string) {
	WriteErrorResponseWithCode(w, http.StatusTooManyRequests, string(apperrors.KindRateLimited), message, nil)
}

// WriteInternalServerErrorResponse 写入500错误响应
func WriteInternalServerErrorResponse(w http.ResponseWriter, message string) {
	WriteErrorResponseWithCode(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", message, nil)
}

// WritePaginatedResponse 写入分页响应
func WritePaginatedResponse(w http.ResponseWriter, data interface{}, page, perPage, total int) {
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage // 向上取整
	}
	writeEnvelope(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Page:       page,
			PerPage:    perPage,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// ParseJSONBody 解析JSON请求体；空请求体与格式错误都返回校验错误
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.Validation("request body is required")
		}
		return apperrors.Validation("invalid JSON body: %v", err)
	}
	return nil
}

// GetQueryInt 获取整数查询参数，缺失或非法时返回默认值
func GetQueryInt(r *http.Request, key string, defaultValue int) int {
	if value := r.URL.Query().Get(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
