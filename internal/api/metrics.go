package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// uploadsStarted 记录已创建的上传数
	uploadsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tuslite_uploads_started_total",
		Help: "Total number of uploads created",
	})

	// uploadsFinished 记录已写满声明长度的上传数
	uploadsFinished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tuslite_uploads_finished_total",
		Help: "Total number of uploads that reached their declared length",
	})

	// uploadsTerminated 记录被客户端主动删除的上传数
	uploadsTerminated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tuslite_uploads_terminated_total",
		Help: "Total number of uploads terminated by clients",
	})
)
