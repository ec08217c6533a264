// Package lease — generic exclusive-lease примитив для singleton
// background workers.
//
// Каждый periodic цикл (poller, retry-worker, incident-worker) перед
// запуском захватывает lease на свой logical worker id. Во всём флоте
// server replicas цикл с данным id активен не более чем в одном
// процессе: чужой неистёкший lease блокирует запуск, истёкший —
// перехватывается, ForceTakeover перехватывает принудительно.
//
// Takeover разрешается last-writer-wins без fencing token: вытесненный
// владелец обнаруживает чужого owner'а при продлении lease перед
// очередным тиком и останавливает свой цикл.
package lease
