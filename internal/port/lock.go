package port

import "context"

// InstallLocker 是按包 Key 加的咨询锁，未配置时安装流程不加锁。
type InstallLocker interface {
	// Acquire 获取锁，返回的 release 用于释放；已被占用时 ok 为 false。
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}
