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
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"
)

type PoolSuite struct {
	suite.Suite
}

func (s *PoolSuite) TestSubmit() {
	pool, err := NewPool(4)
	s.NoError(err)
	defer pool.Release()

	s.Equal(4, pool.Cap())

	var (
		wg  sync.WaitGroup
		sum atomic.Int64
	)
	for i := 1; i <= 100; i++ {
		i := i
		wg.Add(1)
		s.NoError(pool.Submit(func() {
			defer wg.Done()
			sum.Add(int64(i))
		}))
	}
	wg.Wait()
	s.Equal(int64(5050), sum.Load())
}

func (s *PoolSuite) TestDefaultCap() {
	pool, err := NewPool(0)
	s.NoError(err)
	defer pool.Release()
	s.Greater(pool.Cap(), 0)
}

func (s *PoolSuite) TestConcealPanic() {
	pool, err := NewPool(1, WithConcealPanic(true))
	s.NoError(err)
	defer pool.Release()

	var wg sync.WaitGroup
	wg.Add(1)
	s.NoError(pool.Submit(func() {
		defer wg.Done()
		panic("boom")
	}))
	wg.Wait()

	// 吞掉 panic 后池仍然可用。
	wg.Add(1)
	s.NoError(pool.Submit(func() {
		wg.Done()
	}))
	wg.Wait()
}

func TestPool(t *testing.T) {
	suite.Run(t, new(PoolSuite))
}
