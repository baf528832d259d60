// 压测入口：annbench [gen|run]，无子命令时先生成数据集再压测
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		logrus.WithError(err).Error("benchmark failed")
		os.Exit(1)
	}
}
