// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// telepathNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	telepathNamespace = "telepath"

	exchangeSubsystem = "exchange"
	codecSubsystem    = "codec"

	// 以下为当前使用的通用标签名。
	statusLabelName = "status"
	opLabelName     = "op"

	// op 标签取值。
	PackOpLabel   = "pack"
	UnpackOpLabel = "unpack"

	// status 标签取值。
	SuccessLabel = "success"
	FailLabel    = "fail"
)

var (
	// buckets 为操作耗时直方图的桶划分，单位为毫秒。
	// 实际桶分布为：
	// [0.25 0.5 1 2 4 8 16 32 64 128 256 512]
	buckets = prometheus.ExponentialBuckets(0.25, 2, 12)

	// sizeBuckets 为线格式数据大小的桶划分，单位为字节。
	sizeBuckets = []float64{64, 256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304, 16777216}

	// ExchangeOpTotal 统计 pack/unpack 操作次数，按操作与结果分类。
	ExchangeOpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: telepathNamespace,
			Subsystem: exchangeSubsystem,
			Name:      "op_total",
			Help:      "number of pack/unpack operations",
		}, []string{opLabelName, statusLabelName})

	// ExchangeOpLatency 统计 pack/unpack 操作耗时。
	ExchangeOpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: telepathNamespace,
			Subsystem: exchangeSubsystem,
			Name:      "op_latency_ms",
			Help:      "latency of pack/unpack operations in milliseconds",
			Buckets:   buckets,
		}, []string{opLabelName})

	// ExchangeRefHits 统计打包期间命中身份去重表的次数。
	ExchangeRefHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: telepathNamespace,
			Subsystem: exchangeSubsystem,
			Name:      "ref_hits_total",
			Help:      "number of back-references emitted instead of re-packing",
		})

	// CodecBytes 统计编码产物的大小分布。
	CodecBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: telepathNamespace,
			Subsystem: codecSubsystem,
			Name:      "payload_bytes",
			Help:      "size of encoded payloads in bytes",
			Buckets:   sizeBuckets,
		}, []string{opLabelName})
)

// Register 将本包的所有指标注册到给定 Registerer。
// 由进程的组装代码在启动阶段调用一次。
func Register(r prometheus.Registerer) {
	r.MustRegister(ExchangeOpTotal)
	r.MustRegister(ExchangeOpLatency)
	r.MustRegister(ExchangeRefHits)
	r.MustRegister(CodecBytes)
}
