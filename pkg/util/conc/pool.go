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

package conc

import (
	"runtime"

	ants "github.com/panjf2000/ants/v2"
)

// Pool 是对 ants 协程池的轻量封装。
//
// 相比直接使用 ants，Pool 把本项目的默认行为（panic 记录日志并重新抛出、
// 选项函数风格的配置）集中在一处。
type Pool struct {
	inner *ants.Pool
}

// NewPool 创建一个容量为 cap 的协程池。
// cap <= 0 时使用 GOMAXPROCS。
func NewPool(cap int, opts ...PoolOption) (*Pool, error) {
	if cap <= 0 {
		cap = runtime.GOMAXPROCS(0)
	}

	opt := defaultPoolOption()
	for _, o := range opts {
		o(opt)
	}

	inner, err := ants.NewPool(cap, opt.antsOptions()...)
	if err != nil {
		return nil, err
	}
	return &Pool{inner: inner}, nil
}

// Submit 向池中提交一个任务。
// 池满且配置为非阻塞时返回 ants.ErrPoolOverload。
func (p *Pool) Submit(task func()) error {
	return p.inner.Submit(task)
}

// Cap 返回池的容量。
func (p *Pool) Cap() int {
	return p.inner.Cap()
}

// Running 返回当前正在执行任务的 worker 数。
func (p *Pool) Running() int {
	return p.inner.Running()
}

// Release 关闭池并回收所有 worker。
// 已提交的任务会执行完毕，之后的 Submit 将返回错误。
func (p *Pool) Release() {
	p.inner.Release()
}
