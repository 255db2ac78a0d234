package main

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"

	"github.com/wyfcoding/segtree/xerrors"
)

// 进程退出码。
const (
	exitOK       = 0
	exitFailure  = 1   // 结果不一致或内部错误
	exitUsage    = 2   // 配置或参数错误
	exitCanceled = 130 // 被信号中断
)

// exitCode 按错误分类给出退出码；errors.Join 合并的错误取第一个可识别的 *xerrors.Error。
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if e, ok := xerrors.FromError(err); ok {
		switch e.GRPCCode() {
		case codes.InvalidArgument, codes.OutOfRange:
			return exitUsage
		}
		return exitFailure
	}
	if errors.Is(err, context.Canceled) {
		return exitCanceled
	}
	return exitFailure
}

// errorAttrs 返回描述 err 的日志字段。
func errorAttrs(err error) []any {
	attrs := []any{slog.Any("error", err)}
	if e, ok := xerrors.FromError(err); ok {
		attrs = append(attrs,
			slog.Int("code", e.Code),
			slog.String("type", e.Type.String()),
			slog.Int("http_status", e.HTTPStatus()),
			slog.String("grpc_code", e.GRPCCode().String()),
			slog.Any("context", e.Context),
		)
	}
	return attrs
}
