package slatekv

// With opens a database, runs fn with it, and closes it when fn returns
// or panics. The handle must not be used after fn returns. fn's error is
// returned unchanged; a Close failure is reported only when fn itself
// succeeded.
func With(path string, opts *Options, fn func(*Database) error) (err error) {
	db, err := Open(path, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(db)
}

// WithReader opens a read-only handle, runs fn with it, and closes it
// when fn returns or panics.
func WithReader(path string, opts *ReaderOptions, fn func(*Reader) error) (err error) {
	rd, err := OpenReader(path, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rd.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(rd)
}

// WithAdmin opens a control-plane handle, runs fn with it, and closes it
// when fn returns or panics.
func WithAdmin(path string, opts *AdminOptions, fn func(*Admin) error) (err error) {
	adm, err := OpenAdmin(path, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := adm.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(adm)
}

// Update runs fn inside a transaction at the given isolation level.
// When fn returns nil the transaction is committed; when fn returns an
// error or panics the transaction is rolled back, and fn's error (or
// panic) propagates unchanged. Rollback failures are swallowed so the
// caller always sees fn's own outcome.
func (d *Database) Update(level IsolationLevel, fn func(*Transaction) error) error {
	txn, err := d.BeginTransaction(level)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = txn.Rollback()
		}
	}()
	if err := fn(txn); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// View runs fn against a snapshot, closing it when fn returns or panics.
// Closing releases the snapshot's pin on the version history so garbage
// collection can reclaim it.
func (d *Database) View(fn func(*Snapshot) error) (err error) {
	snap, err := d.Snapshot()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := snap.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(snap)
}
