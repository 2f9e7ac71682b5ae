package anello

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_MeteredBuffer(t *testing.T) {
	assert := assert.New(t)

	buf := NewMeteredBuffer[int]("test", 4)

	// Partial write: 3 slots available
	written, rest, err := buf.Write([]int{1, 2, 3, 4})
	assert.NoError(err)
	assert.Equal(3, written)
	assert.Equal([]int{4}, rest)

	assert.Equal(int64(3), buf.writtenItems.Load())
	assert.Equal(int64(1), buf.partialWrites.Load())

	// Full buffer: busy rejection
	_, _, err = buf.Write(rest)
	assert.ErrorIs(err, ErrBufferBusy)
	assert.Equal(int64(1), buf.busyRejections.Load())

	drained, err := buf.Read()
	assert.NoError(err)
	assert.Equal([]int{1, 2, 3}, drained)
	assert.Equal(int64(3), buf.drainedItems.Load())

	// Empty buffer: empty read
	_, err = buf.Read()
	assert.ErrorIs(err, ErrNothingToRead)
	assert.Equal(int64(1), buf.emptyReads.Load())
}
